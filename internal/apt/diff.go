package apt

import "github.com/obentoo/aptaudit/internal/model"

// BuildCandidates pairs installed packages with their upgrades.
// One candidate is produced for every name present in both listings, in the
// order of the upgradable listing. Names found in only one listing are ignored.
func BuildCandidates(installed, upgradable *Listing) []model.UpgradeCandidate {
	if installed == nil || upgradable == nil {
		return []model.UpgradeCandidate{}
	}

	candidates := make([]model.UpgradeCandidate, 0, upgradable.Len())
	for _, up := range upgradable.Records() {
		inst, ok := installed.Get(up.Name)
		if !ok {
			continue
		}

		rec := model.PackageRecord{
			Name:             up.Name,
			InstalledVersion: inst.InstalledVersion,
			CandidateVersion: up.CandidateVersion,
			Origin:           up.Origin,
			Arch:             up.Arch,
		}
		if rec.Arch == "" {
			rec.Arch = inst.Arch
		}

		candidates = append(candidates, model.UpgradeCandidate{
			PackageRecord: rec,
			ChangeKind:    ClassifyChange(rec.InstalledVersion, rec.CandidateVersion),
		})
	}

	return candidates
}
