package detection

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/snapwatch/snapwatch/internal/datastore"
	"github.com/snapwatch/snapwatch/internal/errors"
)

// CompiledProfile is a detection profile with its rule fields decoded once:
// the object-class set, the mask rectangles and, for regex profiles, the
// compiled pattern.
type CompiledProfile struct {
	datastore.DetectionProfile

	classes map[string]struct{}
	pattern *regexp.Regexp // nil for literal patterns
	mask    []Rect
}

// CompileProfile decodes a stored profile's rule fields. Profiles are
// validated at creation time, so a decode failure here indicates corrupted
// storage and is surfaced as a processing error.
func CompileProfile(profile datastore.DetectionProfile) (*CompiledProfile, error) {
	cp := &CompiledProfile{
		DetectionProfile: profile,
		classes:          make(map[string]struct{}),
	}

	if len(profile.ObjectClasses) > 0 {
		var classes []string
		if err := json.Unmarshal(profile.ObjectClasses, &classes); err != nil {
			return nil, errors.New(err).
				Component("detection").
				Category(errors.CategoryProcessing).
				Context("profile", profile.Slug).
				Context("field", "object_classes").
				Build()
		}
		for _, class := range classes {
			cp.classes[class] = struct{}{}
		}
	}

	if len(profile.MaskRectangles) > 0 {
		if err := json.Unmarshal(profile.MaskRectangles, &cp.mask); err != nil {
			return nil, errors.New(err).
				Component("detection").
				Category(errors.CategoryProcessing).
				Context("profile", profile.Slug).
				Context("field", "mask_rectangles").
				Build()
		}
	}

	if profile.UseRegex {
		pattern, err := CompilePattern(profile.FilePattern, true)
		if err != nil {
			return nil, err
		}
		cp.pattern = pattern
	}

	return cp, nil
}

// CompilePattern compiles a profile's file pattern. For literal patterns it
// returns nil; for regex patterns an invalid expression is a validation
// error, raised at profile creation so matching never fails at runtime.
func CompilePattern(filePattern string, useRegex bool) (*regexp.Regexp, error) {
	if !useRegex {
		return nil, nil
	}
	pattern, err := regexp.Compile(filePattern)
	if err != nil {
		return nil, errors.New(err).
			Component("detection").
			Category(errors.CategoryValidation).
			Context("file_pattern", filePattern).
			Build()
	}
	return pattern, nil
}

// MatchesFileName tests the event's file name against the profile's file
// pattern: substring containment for literal patterns, a regexp test
// otherwise. An empty pattern matches nothing.
func (cp *CompiledProfile) MatchesFileName(fileName string) bool {
	if cp.FilePattern == "" {
		return false
	}
	if cp.pattern != nil {
		return cp.pattern.MatchString(fileName)
	}
	return strings.Contains(fileName, cp.FilePattern)
}

// HasClass reports whether the object class is in the profile's accepted set.
// Membership is a case-sensitive exact match.
func (cp *CompiledProfile) HasClass(objectClass string) bool {
	_, ok := cp.classes[objectClass]
	return ok
}
