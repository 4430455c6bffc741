package discovery

import (
	"commentarycollection/internal/catalog"
	"commentarycollection/internal/language"
)

const (
	minTracks      = 2
	stereoChannels = 2
)

// Criteria tunes the eligibility heuristic.
type Criteria struct {
	// ChannelFilter requires at least one two-channel track.
	ChannelFilter bool
}

// VersionVerdict is the heuristic result for one media version.
type VersionVerdict struct {
	Index         int
	TrackCount    int
	EngTrackCount int
	HasStereo     bool
	Eligible      bool
	Reason        string
}

// Evaluate returns one verdict per media version of item, in order.
func Evaluate(item *catalog.Item, criteria Criteria) []VersionVerdict {
	verdicts := make([]VersionVerdict, 0, len(item.Versions))
	for idx, version := range item.Versions {
		verdicts = append(verdicts, evaluateVersion(idx, version, criteria))
	}
	return verdicts
}

func evaluateVersion(idx int, version catalog.MediaVersion, criteria Criteria) VersionVerdict {
	v := VersionVerdict{Index: idx, TrackCount: len(version.Tracks)}
	if v.TrackCount < minTracks {
		v.Reason = "fewer than two audio tracks"
		return v
	}
	for _, track := range version.Tracks {
		if language.IsEnglishOrUnknown(track.Language) {
			v.EngTrackCount++
		}
		if track.Channels == stereoChannels {
			v.HasStereo = true
		}
	}
	switch {
	case v.EngTrackCount <= 1:
		v.Reason = "at most one English or untagged track"
	case criteria.ChannelFilter && !v.HasStereo:
		v.Reason = "no stereo track"
	default:
		v.Eligible = true
		v.Reason = "multiple English or untagged tracks"
	}
	return v
}

// EligibleVersions filters verdicts down to the eligible ones.
func EligibleVersions(verdicts []VersionVerdict) []VersionVerdict {
	var out []VersionVerdict
	for _, v := range verdicts {
		if v.Eligible {
			out = append(out, v)
		}
	}
	return out
}
