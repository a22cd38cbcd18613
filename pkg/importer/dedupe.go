package importer

import (
	"strings"

	"github.com/adrata/backend/pkg/utils"
)

// DedupeReport counts rows involved in duplicates. ByEmail and ByName count
// every row of a duplicate set, the first occurrence included.
type DedupeReport struct {
	Input           int `json:"input"`
	Unique          int `json:"unique"`
	ByEmail         int `json:"by_email"`
	ByName          int `json:"by_name"`
	TotalDuplicates int `json:"total_duplicates"`
}

func nameKey(r Row) string {
	return strings.ToLower(utils.NormalizeName(r.FullName))
}

// Deduplicate keeps the first row per email. Rows without an email are then
// dropped when their full name matches a row already kept.
func Deduplicate(rows []Row) ([]Row, DedupeReport) {
	rep := DedupeReport{Input: len(rows)}

	emailCount := make(map[string]int)
	nameCount := make(map[string]int)
	for _, r := range rows {
		if e := r.PrimaryEmail(); e != "" {
			emailCount[e]++
		}
		if n := nameKey(r); n != "" {
			nameCount[n]++
		}
	}
	for _, r := range rows {
		byEmail := r.PrimaryEmail() != "" && emailCount[r.PrimaryEmail()] > 1
		byName := nameKey(r) != "" && nameCount[nameKey(r)] > 1
		if byEmail {
			rep.ByEmail++
		}
		if byName {
			rep.ByName++
		}
		if byEmail || byName {
			rep.TotalDuplicates++
		}
	}

	seenEmail := make(map[string]bool)
	seenName := make(map[string]bool)
	unique := make([]Row, 0, len(rows))
	for _, r := range rows {
		email, name := r.PrimaryEmail(), nameKey(r)
		if email != "" {
			if seenEmail[email] {
				continue
			}
			seenEmail[email] = true
		} else if name != "" && seenName[name] {
			continue
		}
		if name != "" {
			seenName[name] = true
		}
		unique = append(unique, r)
	}
	rep.Unique = len(unique)
	return unique, rep
}
