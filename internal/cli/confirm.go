package cli

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/huh"

	"github.com/sadopc/reportory/internal/backup"
)

// huhConfirm asks a yes/no question on the terminal. Aborting the prompt
// counts as no.
type huhConfirm struct {
	title string
	in    io.Reader
	out   io.Writer
}

func promptConfirmer(title string, in io.Reader, out io.Writer) backup.Confirmer {
	return huhConfirm{title: title, in: in, out: out}
}

func (c huhConfirm) Confirm(ctx context.Context) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(c.title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithInput(c.in).WithOutput(c.out)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

type autoConfirm struct{}

func (autoConfirm) Confirm(context.Context) (bool, error) { return true, nil }
