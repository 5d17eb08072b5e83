// Package buildinfo carries build-time metadata that is not user configuration.
package buildinfo

import (
	"fmt"

	"github.com/google/uuid"
)

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// BuildInfo provides access to build-time metadata.
type BuildInfo interface {
	GetVersion() string
	GetBuildDate() string
	GetSystemID() string
}

// Context is injected at startup from linker flags.
type Context struct {
	Version   string
	BuildDate string

	// SystemID identifies this installation, e.g. in MQTT client ids.
	SystemID string
}

// NewContext returns build metadata. An empty systemID gets a random one.
func NewContext(version, buildDate, systemID string) *Context {
	if systemID == "" {
		systemID = uuid.NewString()[:8]
	}
	return &Context{Version: version, BuildDate: buildDate, SystemID: systemID}
}

func valueOr(v string) string {
	if v == "" {
		return UnknownValue
	}
	return v
}

// GetVersion implements BuildInfo.
func (c *Context) GetVersion() string {
	if c == nil {
		return UnknownValue
	}
	return valueOr(c.Version)
}

// GetBuildDate implements BuildInfo.
func (c *Context) GetBuildDate() string {
	if c == nil {
		return UnknownValue
	}
	return valueOr(c.BuildDate)
}

// GetSystemID implements BuildInfo.
func (c *Context) GetSystemID() string {
	if c == nil {
		return UnknownValue
	}
	return valueOr(c.SystemID)
}

// UserAgent is sent to external services such as the geocoder.
func (c *Context) UserAgent() string {
	return "blink-go/" + c.GetVersion()
}

// String renders version and build date for the version command.
func (c *Context) String() string {
	return fmt.Sprintf("blink %s (built %s)", c.GetVersion(), c.GetBuildDate())
}
