// Package templates enumerates template declarations and assembles the
// required-fields schema REFINE queries a provider with. Templates are inert
// metadata: this package never renders one — that is a plugin's job
// (internal/plugins).
package templates
