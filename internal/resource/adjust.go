package resource

import "log/slog"

// AdjustTargetCodes copies the markup of source codes onto the target
// codes with the same id and tag type. Translated text often comes back
// with empty or normalised codes; this restores the original data.
// Target codes with no source counterpart are kept as they are, and
// source codes that are not deleteable but missing from the target are
// reported. It returns the number of codes adjusted.
func AdjustTargetCodes(source, target *TextFragment, log *slog.Logger, unitID string) int {
	if log == nil {
		log = slog.Default()
	}
	used := make([]bool, len(source.codes))
	done := 0
	for _, tc := range target.codes {
		found := false
		for j, sc := range source.codes {
			if used[j] || sc.ID != tc.ID || sc.TagType != tc.TagType {
				continue
			}
			used[j] = true
			found = true
			tc.Type = sc.Type
			tc.Data = sc.Data
			tc.OuterData = ""
			tc.HasReference = sc.HasReference
			tc.Cloneable = sc.Cloneable
			tc.Deleteable = sc.Deleteable
			done++
			break
		}
		if !found && !tc.HasData() {
			log.Warn("target code has no source counterpart and no data",
				"unit_id", unitID, "code_id", tc.ID, "tag_type", tc.TagType.String())
		}
	}
	for j, sc := range source.codes {
		if !used[j] && !sc.Deleteable {
			log.Warn("source code missing from target",
				"unit_id", unitID, "code_id", sc.ID, "data", sc.Data)
		}
	}
	return done
}
