package genregistry

import "context"

// constantKind streams the generator string verbatim on every call.
type constantKind struct{}

func (constantKind) Validate(string) (int, error) { return 0, nil }

func (constantKind) Stream(_ context.Context, gctx *GenContext) (*string, error) {
	v := gctx.Spec
	return &v, nil
}
