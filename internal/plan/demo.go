package plan

import (
	"github.com/dbsmedya/goseed/internal/fixture"
	"github.com/dbsmedya/goseed/internal/relation"
)

// Demo returns the sample tenant plan. It assumes baseline collections are
// already seeded.
func Demo() Plan {
	return Plan{
		Kind: fixture.KindDemo,
		Steps: []Step{
			{Name: "media", Collection: "media", Fixture: "media", FileField: "file"},
			{
				Name:       "posts",
				Collection: "posts",
				Fixture:    "posts",
				Mappings: []relation.Mapping{
					many("tagStableIds", "tags", "tags", false),
					many("categoryStableIds", "categories", "categories", false),
					one("thumbnailStableId", "thumbnail", "media", false),
				},
				Deferred: []relation.Mapping{
					many("relatedPostsStableIds", "relatedPosts", "posts", false),
				},
			},
			{
				Name:       "patients",
				Collection: "patients",
				Fixture:    "patients",
				Mappings: []relation.Mapping{
					one("cityStableId", "city", "cities", false),
				},
			},
			{
				Name:       "clinics",
				Collection: "clinics",
				Fixture:    "clinics",
				Mappings: []relation.Mapping{
					one("cityStableId", "location.city", "cities", true),
					many("tagStableIds", "tags", "tags", false),
					many("accreditationStableIds", "accreditations", "accreditations", false),
					one("thumbnailStableId", "thumbnail", "media", false),
				},
			},
			{
				Name:       "doctors",
				Collection: "doctors",
				Fixture:    "doctors",
				Mappings: []relation.Mapping{
					one("clinicStableId", "clinic", "clinics", true),
					one("thumbnailStableId", "thumbnail", "media", false),
				},
			},
			{
				Name:       "clinic-treatments",
				Collection: "clinic-treatments",
				Fixture:    "clinic-treatments",
				Mappings: []relation.Mapping{
					one("clinicStableId", "clinic", "clinics", true),
					one("treatmentStableId", "treatment", "treatments", true),
				},
			},
			{
				Name:       "doctor-specialties",
				Collection: "doctor-specialties",
				Fixture:    "doctor-specialties",
				Mappings: []relation.Mapping{
					one("doctorStableId", "doctor", "doctors", true),
					one("specialtyStableId", "specialty", "medical-specialties", true),
				},
			},
			{
				Name:       "doctor-treatments",
				Collection: "doctor-treatments",
				Fixture:    "doctor-treatments",
				Mappings: []relation.Mapping{
					one("doctorStableId", "doctor", "doctors", true),
					one("treatmentStableId", "treatment", "treatments", true),
				},
			},
			{
				Name:       "reviews",
				Collection: "reviews",
				Fixture:    "reviews",
				Mappings: []relation.Mapping{
					one("clinicStableId", "clinic", "clinics", true),
					one("doctorStableId", "doctor", "doctors", true),
					one("treatmentStableId", "treatment", "treatments", true),
					one("reviewerStableId", "reviewer", "patients", false),
				},
			},
			{
				Name:       "favorite-clinics",
				Collection: "favorite-clinics",
				Fixture:    "favorite-clinics",
				Mappings: []relation.Mapping{
					one("patientStableId", "patient", "patients", true),
					one("clinicStableId", "clinic", "clinics", true),
				},
			},
		},
	}
}
