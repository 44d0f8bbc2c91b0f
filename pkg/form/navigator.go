package form

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// LinkNavigator "navigates" by writing the frontend URL for a route.
type LinkNavigator struct {
	Origin string
	Out    io.Writer
}

func (n LinkNavigator) URL(r Route) string {
	return strings.TrimRight(n.Origin, "/") + r.Path()
}

func (n LinkNavigator) Navigate(_ context.Context, r Route) error {
	if _, err := fmt.Fprintln(n.Out, n.URL(r)); err != nil {
		return err
	}
	if r.State != nil {
		_, err := fmt.Fprintf(n.Out, "  title: %s\n  description: %s\n", r.State.BugTitle, r.State.BugDescription)
		return err
	}
	return nil
}
