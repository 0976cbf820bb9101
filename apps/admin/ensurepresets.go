package main

import (
	"context"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/media"
	"github.com/trezcool/darasa/services/mediastore"
)

var newPresetAdminFunc = func() media.ProviderAdmin { return mediastore.NewCloudinaryAdmin() } // mockable

// ensurePresets recreates every upload preset on the media provider so they
// match the declared configuration.
func (cli *commandLine) ensurePresets() error {
	reconciler := media.NewReconciler(newPresetAdminFunc(), core.NewStdLogger(logger))
	return reconciler.EnsureAll(context.Background())
}
