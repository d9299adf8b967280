// Package system starts and stops the portal's background components in a
// fixed order.
package system

import "context"

// Service represents a lifecycle-managed component.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
