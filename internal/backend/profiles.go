package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
)

// GetProfileDetails returns a profile with its rating aggregates. Profiles
// are public.
func (b *Backend) GetProfileDetails(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := b.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("backend: getting profile %s: %w", userID, err)
	}
	return p, nil
}

// UpdateProfile overwrites the caller's full name, bio and interests.
// The rating aggregates on profile are ignored.
func (b *Backend) UpdateProfile(ctx context.Context, profile *model.Profile) error {
	if err := requireSelf(ctx, profile.ID, "edit the profile"); err != nil {
		return err
	}

	update := &model.Profile{
		ID:        profile.ID,
		FullName:  strings.TrimSpace(profile.FullName),
		Bio:       strings.TrimSpace(profile.Bio),
		Interests: model.NormalizeInterests(profile.Interests),
	}

	switch {
	case update.FullName == "":
		return apperror.ValidationFailed("full_name", "full name is required")
	case len(update.FullName) > MaxFullNameLength:
		return apperror.ValidationFailed("full_name",
			fmt.Sprintf("full name must be %d characters or less", MaxFullNameLength))
	case len(update.Bio) > MaxBioLength:
		return apperror.ValidationFailed("bio",
			fmt.Sprintf("bio must be %d characters or less", MaxBioLength))
	case len(update.Interests) > MaxInterests:
		return apperror.ValidationFailed("interests",
			fmt.Sprintf("at most %d interests are allowed", MaxInterests))
	}

	if err := b.profiles.UpdateProfile(ctx, update); err != nil {
		return fmt.Errorf("backend: updating profile %s: %w", profile.ID, err)
	}
	return nil
}
