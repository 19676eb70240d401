package datastore

import (
	"github.com/snapwatch/snapwatch/internal/errors"
)

// CreateProfile stores a new detection profile. The slug is derived from the
// name when not already set; a duplicate slug is a conflict.
func (ds *DataStore) CreateProfile(profile *DetectionProfile) error {
	if profile.Slug == "" {
		profile.Slug = Slugify(profile.Name)
	}
	if profile.Slug == "" {
		return errors.ValidationError("profile name %q produces an empty slug", profile.Name)
	}

	if err := ds.DB.Create(profile).Error; err != nil {
		if isUniqueViolation(err) {
			return errors.Newf("profile slug %q already exists", profile.Slug).
				Component("datastore").
				Category(errors.CategoryConflict).
				Build()
		}
		return dbError(err, "create_profile")
	}
	return nil
}

// GetProfile retrieves a profile by id.
func (ds *DataStore) GetProfile(id uint) (DetectionProfile, error) {
	var profile DetectionProfile
	if err := ds.DB.First(&profile, id).Error; err != nil {
		return DetectionProfile{}, dbError(err, "get_profile")
	}
	return profile, nil
}

// ListProfiles returns a page of profiles ordered by id.
func (ds *DataStore) ListProfiles(limit, offset int) ([]DetectionProfile, int64, error) {
	var total int64
	if err := ds.DB.Model(&DetectionProfile{}).Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "count_profiles")
	}

	var profiles []DetectionProfile
	if err := ds.DB.
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&profiles).Error; err != nil {
		return nil, 0, dbError(err, "list_profiles")
	}

	return profiles, total, nil
}

// GetAllProfiles returns every profile. The matching engine compiles these
// into its rule cache.
func (ds *DataStore) GetAllProfiles() ([]DetectionProfile, error) {
	var profiles []DetectionProfile
	if err := ds.DB.Order("id ASC").Find(&profiles).Error; err != nil {
		return nil, dbError(err, "get_all_profiles")
	}
	return profiles, nil
}
