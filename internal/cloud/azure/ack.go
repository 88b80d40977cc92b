package azure

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// AckRequest is what the operator is asked to confirm.
type AckRequest struct {
	SubscriptionID string
	Permissions    []FeaturePermission
}

// Acknowledger confirms that the custom Azure role has been created and
// assigned. Returning false pauses the run.
type Acknowledger interface {
	Acknowledge(ctx context.Context, req AckRequest) (bool, error)
}

// Acknowledged is an Acknowledger with a fixed answer.
type Acknowledged bool

func (a Acknowledged) Acknowledge(context.Context, AckRequest) (bool, error) {
	return bool(a), nil
}

// PromptAcknowledger prints the permissions and waits for Enter. End of
// input means nobody is there to confirm, which pauses the run.
type PromptAcknowledger struct {
	In  io.Reader
	Out io.Writer
}

func (p PromptAcknowledger) Acknowledge(ctx context.Context, req AckRequest) (bool, error) {
	if err := WritePermissions(p.Out, req.Permissions); err != nil {
		return false, err
	}
	fmt.Fprintln(p.Out)
	fmt.Fprintf(p.Out, "Create a custom Azure role with these permissions and assign it to the application at the scope of subscription %s.\n", req.SubscriptionID)
	fmt.Fprint(p.Out, "Press Enter to continue after creating and assigning the Azure custom role...")

	line := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(p.In).ReadString('\n')
		line <- err
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-line:
		fmt.Fprintln(p.Out)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, io.EOF):
			return false, nil
		default:
			return false, err
		}
	}
}

// WritePermissions prints each permission set, pretty-printed when it is JSON.
func WritePermissions(w io.Writer, perms []FeaturePermission) error {
	if _, err := fmt.Fprintln(w, "Required Azure permissions:"); err != nil {
		return err
	}
	for _, p := range perms {
		var err error
		switch {
		case p.PermissionJSON == "":
			_, err = fmt.Fprintf(w, "  No permission JSON for feature %s\n", p.Feature)
		case !json.Valid([]byte(p.PermissionJSON)):
			_, err = fmt.Fprintf(w, "  Raw permission JSON for %s (not valid JSON): %s\n", p.Feature, p.PermissionJSON)
		default:
			_, err = fmt.Fprintf(w, "%s:\n%s\n", p.Feature, p.Pretty())
		}
		if err != nil {
			return err
		}
	}
	return nil
}
