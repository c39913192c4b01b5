// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package models

// PublishEra buckets first-publish years into coarse literary eras.
type PublishEra string

const (
	// EraClassical covers works first published before 1800.
	EraClassical PublishEra = "classical"
	// Era19thCentury covers 1800-1899.
	Era19thCentury PublishEra = "19th-century"
	// EraEarly20thCentury covers 1900-1949.
	EraEarly20thCentury PublishEra = "early-20th-century"
	// EraMid20thCentury covers 1950-1999.
	EraMid20thCentury PublishEra = "mid-20th-century"
	// EraContemporary covers 2000 onward.
	EraContemporary PublishEra = "contemporary"
	// EraUnknown is used when no year could be extracted.
	EraUnknown PublishEra = "unknown"
)

// EraForYear returns the era bucket for a publish year.
func EraForYear(year int) PublishEra {
	switch {
	case year < 1800:
		return EraClassical
	case year < 1900:
		return Era19thCentury
	case year < 1950:
		return EraEarly20thCentury
	case year < 2000:
		return EraMid20thCentury
	default:
		return EraContemporary
	}
}

// ExtractYear finds the first 4-digit year in a free-form date string.
// Catalog sources record dates inconsistently ("1954", "May 1, 1922",
// "c. 1890"), so a digit scan is the only reliable approach.
func ExtractYear(date string) (int, bool) {
	run := 0
	value := 0
	for i := 0; i <= len(date); i++ {
		if i < len(date) && date[i] >= '0' && date[i] <= '9' {
			run++
			value = value*10 + int(date[i]-'0')
			continue
		}
		if run == 4 {
			return value, true
		}
		run = 0
		value = 0
	}
	return 0, false
}
