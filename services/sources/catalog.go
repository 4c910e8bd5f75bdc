package sources

import "youtv/models"

// builtinSources is the compiled-in catalog, in display order.
var builtinSources = []models.UpstreamSource{
	{Code: "bfzy", Name: "暴风影视", BaseURL: "https://bfzyapi.com/api.php/provide/vod"},
	{Code: "tyyszy", Name: "太阳影视", BaseURL: "https://api.tyun77.cn/api.php/provide/vod"},
	{Code: "ffzy", Name: "非凡影视", BaseURL: "https://cj.ffzyapi.com/api.php/provide/vod"},
	{Code: "lzzy", Name: "量子影视", BaseURL: "https://cj.lziapi.com/api.php/provide/vod"},
	{Code: "hnzy", Name: "红牛影视", BaseURL: "https://www.hongniuzy2.com/api.php/provide/vod"},
	{Code: "ukzy", Name: "优酷影视", BaseURL: "https://api.ukuapi.com/api.php/provide/vod"},
	{Code: "dyttzy", Name: "大雅影视", BaseURL: "https://www.dyttzy.com/api.php/provide/vod"},
	{Code: "kuaikan", Name: "快看影视", BaseURL: "https://www.kuaikanzy.net/api.php/provide/vod"},
	{Code: "haiwaikan", Name: "海外看", BaseURL: "https://haiwaikan.com/api.php/provide/vod"},
	{Code: "bdzy", Name: "百度影视", BaseURL: "https://api.apibdzy.com/api.php/provide/vod"},
}

// DefaultSources returns a copy of the compiled-in catalog.
func DefaultSources() []models.UpstreamSource {
	out := make([]models.UpstreamSource, len(builtinSources))
	copy(out, builtinSources)
	return out
}
