package player

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// ListenKeyboard puts stdin into raw mode and dispatches single keystrokes
// until ctx is cancelled: space toggles pause, 's' requests a single-message
// step, Ctrl+C invokes onQuit, any other key is ignored. Restores the
// terminal on return.
//
// Raw mode suppresses the terminal's normal SIGINT generation, so Ctrl+C
// has to be read back as byte 3 and handled explicitly rather than relying
// on signal delivery.
//
// Uses golang.org/x/term for raw-mode terminal handling: put the terminal
// into raw mode, poll stdin with a short read deadline, and restore on
// exit.
func ListenKeyboard(ctx context.Context, onToggle, onStep, onQuit func(), log zerolog.Logger) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		log.Debug().Msg("player: stdin is not a terminal, keyboard controls disabled")
		<-ctx.Done()
		return nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, oldState)

	buf := make([]byte, 1)
	for {
		if ctx.Err() != nil {
			return nil
		}

		os.Stdin.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		n, err := os.Stdin.Read(buf)
		if err != nil {
			// Read deadline expiring surfaces as a timeout error on most
			// platforms; just re-poll.
			continue
		}
		if n == 0 {
			continue
		}

		switch buf[0] {
		case ' ':
			onToggle()
		case 's', 'S':
			onStep()
		case 3: // Ctrl+C
			onQuit()
			return nil
		}
	}
}
