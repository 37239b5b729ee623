package app

import (
	"errors"
	"testing"
)

type fakeCloser struct {
	err    error
	closed bool
}

func (c *fakeCloser) Close() error {
	c.closed = true
	return c.err
}

func TestCloseWithError(t *testing.T) {
	errRun := errors.New("mission failed")
	errClose := errors.New("framebuffer busy")

	testCases := []struct {
		name     string
		runErr   error
		closeErr error
		wantErrs []error
	}{
		{"clean", nil, nil, nil},
		{"close fails", nil, errClose, []error{errClose}},
		{"run fails", errRun, nil, []error{errRun}},
		{"both fail", errRun, errClose, []error{errRun, errClose}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := &fakeCloser{err: tc.closeErr}

			run := func() (err error) {
				defer closeWithError(c, &err)
				return tc.runErr
			}
			err := run()

			if !c.closed {
				t.Error("expected close")
			}
			if (err != nil) != (len(tc.wantErrs) > 0) {
				t.Fatalf("unexpected error state: %v", err)
			}
			for _, e := range tc.wantErrs {
				if !errors.Is(err, e) {
					t.Errorf("expected %v in %v", e, err)
				}
			}
		})
	}
}
