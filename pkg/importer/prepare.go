package importer

import (
	"github.com/adrata/backend/pkg/utils"
)

// CompanyRow is a company to create from an import.
type CompanyRow struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Key is the normalized name used to match existing companies.
func (c CompanyRow) Key() string {
	return utils.NormalizeCompanyName(c.Name)
}

// Split separates people from organizations. Companies come from
// organization rows and from the company names on people, one per
// normalized name, organization rows first.
func Split(rows []Row) ([]Row, []CompanyRow) {
	var people []Row
	var companies []CompanyRow
	seen := make(map[string]bool)

	add := func(c CompanyRow) {
		key := c.Key()
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		companies = append(companies, c)
	}

	for _, r := range rows {
		if r.Type == TypeOrganization {
			add(CompanyRow{
				Name:       utils.FirstNonEmpty(r.FullName, r.CompanyName),
				Address:    r.Address,
				City:       r.City,
				State:      r.State,
				PostalCode: r.PostalCode,
				Country:    r.Country,
			})
			continue
		}
		people = append(people, r)
	}
	for _, r := range people {
		if r.CompanyName == "" {
			continue
		}
		add(CompanyRow{
			Name:       r.CompanyName,
			Address:    r.Address,
			City:       r.City,
			State:      r.State,
			PostalCode: r.PostalCode,
			Country:    r.Country,
		})
	}

	return people, companies
}
