package glkit

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/tinyrange/glkit/gl"
)

var versionPrefix = regexp.MustCompile(`^(?:OpenGL ES )?(\d+)\.(\d+)(?:\.(\d+))?`)

// Context binds glkit to one loaded GL entry point table and caches the
// limits resources are checked against.
type Context struct {
	gl      gl.OpenGL
	opts    Options
	version *semver.Version

	maxColorAttachments int
	maxTextureUnits     int
}

// NewContext queries the version and limits of the current GL context.
func NewContext(table gl.OpenGL, opts ...Option) (*Context, error) {
	o := DefaultOptions().Apply(opts...)
	if err := o.Validate(); err != nil {
		return nil, err
	}

	raw := table.GetString(gl.Version)
	version, err := parseVersion(raw)
	if err != nil {
		return nil, err
	}

	c := &Context{gl: table, opts: o, version: version}

	var v int32
	table.GetIntegerv(gl.MaxColorAttachments, &v)
	c.maxColorAttachments = int(v)
	table.GetIntegerv(gl.MaxTextureImageUnits, &v)
	c.maxTextureUnits = int(v)

	if missing := gl.Missing(table); len(missing) > 0 {
		slog.Debug("context: entry points unavailable", "count", len(missing), "names", strings.Join(missing, ","))
	}
	slog.Debug("context: created",
		"version", version.String(),
		"max_color_attachments", c.maxColorAttachments,
		"max_texture_units", c.maxTextureUnits,
	)
	return c, nil
}

func parseVersion(raw string) (*semver.Version, error) {
	m := versionPrefix.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return nil, fmt.Errorf("unrecognised GL version string %q", raw)
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	return semver.NewVersion(m[1] + "." + m[2] + "." + patch)
}

// GL returns the entry point table.
func (c *Context) GL() gl.OpenGL {
	return c.gl
}

// Options returns the options the context was created with.
func (c *Context) Options() Options {
	return c.opts
}

// Version returns the GL version as major.minor.patch.
func (c *Context) Version() string {
	return c.version.String()
}

// Supports reports whether the context version satisfies a semver
// constraint such as ">= 4.5". Invalid constraints are never satisfied.
func (c *Context) Supports(constraint string) bool {
	cs, err := semver.NewConstraint(constraint)
	if err != nil {
		slog.Warn("context: invalid version constraint", "constraint", constraint, "error", err)
		return false
	}
	return cs.Check(c.version)
}

// MaxColorAttachments is GL_MAX_COLOR_ATTACHMENTS.
func (c *Context) MaxColorAttachments() int {
	return c.maxColorAttachments
}

// MaxTextureUnits is GL_MAX_TEXTURE_IMAGE_UNITS.
func (c *Context) MaxTextureUnits() int {
	return c.maxTextureUnits
}

// MaxImageUnits is the image unit cap from Options.
func (c *Context) MaxImageUnits() int {
	return c.opts.MaxImageUnits
}

// check drains glGetError when CheckErrors is enabled.
func (c *Context) check(resource, op string) error {
	if !c.opts.CheckErrors {
		return nil
	}
	var codes []string
	for i := 0; i < 16; i++ {
		code := c.gl.GetError()
		if code == gl.NoError {
			break
		}
		codes = append(codes, gl.ErrorString(code))
	}
	if len(codes) == 0 {
		return nil
	}
	return newError(resource, op, ErrNative, "%s", strings.Join(codes, ", "))
}
