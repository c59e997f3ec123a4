package plan

import (
	"github.com/dbsmedya/goseed/internal/fixture"
	"github.com/dbsmedya/goseed/internal/relation"
)

// Baseline returns the reference data plan. Order matters: every mapping
// target is produced by an earlier step.
func Baseline() Plan {
	return Plan{
		Kind: fixture.KindBaseline,
		Steps: []Step{
			{Name: "globals", Fixture: "globals", Globals: true},
			{Name: "countries", Collection: "countries", Fixture: "countries"},
			{
				Name:       "cities",
				Collection: "cities",
				Fixture:    "cities",
				Mappings: []relation.Mapping{
					one("countryStableId", "country", "countries", true),
				},
			},
			{
				Name:       "medical-specialties",
				Collection: "medical-specialties",
				Fixture:    "medical-specialties",
				Mappings: []relation.Mapping{
					one("parentStableId", "parent", "medical-specialties", false),
				},
			},
			{Name: "accreditations", Collection: "accreditations", Fixture: "accreditations"},
			{Name: "tags", Collection: "tags", Fixture: "tags"},
			{Name: "categories", Collection: "categories", Fixture: "categories"},
			{
				Name:       "treatments",
				Collection: "treatments",
				Fixture:    "treatments",
				Mappings: []relation.Mapping{
					one("specialtyStableId", "specialty", "medical-specialties", true),
					many("tagStableIds", "tags", "tags", false),
				},
			},
		},
	}
}
