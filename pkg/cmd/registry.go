package cmd

import (
	"log/slog"

	filewriteaction "github.com/cascadeflow/cascade/pkg/actions/filewrite"
	httprequestaction "github.com/cascadeflow/cascade/pkg/actions/httprequest"
	logaction "github.com/cascadeflow/cascade/pkg/actions/log"
	transformaction "github.com/cascadeflow/cascade/pkg/actions/transform"
	"github.com/cascadeflow/cascade/pkg/registry"
)

// NewRegistry creates a registry with the builtin actions registered.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterAction(logaction.ID, logaction.Factory)
	reg.RegisterAction(httprequestaction.ID, httprequestaction.Factory)
	reg.RegisterAction(transformaction.ID, transformaction.Factory)
	reg.RegisterAction(filewriteaction.ID, filewriteaction.Factory)

	return reg
}
