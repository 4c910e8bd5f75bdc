package upstream

import "youtv/models"

// Attribution tags normalized records with the source they came from.
type Attribution struct {
	Code   string
	Name   string
	APIURL string
}

// Summary maps one raw row to a VideoSummary. Every field is set, missing
// ones as "".
func Summary(v RawVideo, attr Attribution) models.VideoSummary {
	return models.VideoSummary{
		ExternalID:   v.VodID.String(),
		Title:        v.VodName.String(),
		CoverURL:     v.VodPic.String(),
		Remarks:      v.VodRemarks.String(),
		CategoryName: v.TypeName.String(),
		Year:         v.VodYear.String(),
		SourceCode:   attr.Code,
		SourceName:   attr.Name,
		APIURL:       attr.APIURL,
	}
}

// Summaries maps a raw list, preserving upstream order.
func Summaries(list []RawVideo, attr Attribution) []models.VideoSummary {
	out := make([]models.VideoSummary, 0, len(list))
	for _, v := range list {
		out = append(out, Summary(v, attr))
	}
	return out
}

const (
	defaultDescription = "暂无简介"
	defaultType        = "未知"
)

// Detail maps a raw row to a VideoDetail with the display defaults applied.
func Detail(v RawVideo, attr Attribution) models.VideoDetail {
	d := models.VideoDetail{
		ExternalID:  v.VodID.String(),
		Title:       v.VodName.String(),
		CoverURL:    v.VodPic.String(),
		Type:        v.TypeName.String(),
		Year:        v.VodYear.String(),
		Area:        v.VodArea.String(),
		Director:    v.VodDirector.String(),
		Actor:       v.VodActor.String(),
		Remarks:     v.VodRemarks.String(),
		Description: v.VodContent.String(),
		SourceCode:  attr.Code,
		SourceName:  attr.Name,
	}
	if d.Description == "" {
		d.Description = defaultDescription
	}
	if d.Type == "" {
		d.Type = defaultType
	}
	return d
}
