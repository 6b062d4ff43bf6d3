package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/negroni/relay/internal/domain"
	"github.com/negroni/relay/internal/handleclient"
	"github.com/negroni/relay/internal/logger"
	"github.com/negroni/relay/internal/preview"
	"github.com/negroni/relay/internal/relayclient"
	"github.com/negroni/relay/internal/sequencer"
	"github.com/negroni/relay/internal/telegram"
)

type sendOptions struct {
	userID      int64
	chatID      int64
	download    bool
	prepareOnly bool
}

// fsys is where sharectl reads sources and writes downloads.
var fsys = afero.NewOsFs()

// send <file>: relay a file, prepare a message and share or download it.
func sendCmd(root *rootOptions) *cobra.Command {
	opts := &sendOptions{}
	cmd := &cobra.Command{
		Use:   "send <file>",
		Short: "Relay a file and share the relayed copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, root, opts, args[0])
		},
	}
	cmd.Flags().Int64Var(&opts.userID, "user", 0, "Telegram user id to prepare the message for")
	cmd.Flags().Int64Var(&opts.chatID, "chat", 0, "chat id for the bot to send to when no --user is given")
	cmd.Flags().BoolVar(&opts.download, "download", false, "save the relayed copy to $DOWNLOAD_DIR")
	cmd.Flags().BoolVar(&opts.prepareOnly, "prepare-only", false, "stop once the message is prepared")
	return cmd
}

func runSend(cmd *cobra.Command, root *rootOptions, opts *sendOptions, path string) error {
	cfg := root.cfg
	out := cmd.OutOrStdout()

	asset, err := loadAsset(path)
	if err != nil {
		return err
	}

	seqOpts := sequencer.Options{
		UploadTimeout:  cfg.UploadTimeout,
		PrepareTimeout: cfg.PrepareTimeout,
		Logger:         logger.L,
	}
	if opts.chatID != 0 && cfg.TelegramBotToken != "" {
		bot, err := telegram.New(cfg.TelegramBotToken, "", logger.L)
		if err != nil {
			return err
		}
		seqOpts.Native = telegram.NewChatSharer(bot, opts.chatID)
	}

	changes := make(chan sequencer.Snapshot, 64)
	var last string
	seqOpts.OnChange = func(s sequencer.Snapshot) {
		select {
		case changes <- s:
		default:
		}
	}

	store := preview.NewMemStore()
	seq := sequencer.New(
		relayclient.New(cfg.RelayURL, root.http),
		handleclient.New(cfg.PrepareURL, root.http),
		newTerminalPlatform(out, opts.userID),
		store,
		seqOpts,
	)
	defer seq.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.UploadTimeout+2*cfg.PrepareTimeout+10*time.Second)
	defer cancel()

	show := func(s sequencer.Snapshot) {
		if s.Status != last {
			fmt.Fprintf(out, "[%s] %s\n", s.State, s.Status)
			last = s.Status
		}
	}

	seq.OnFileSelected(asset)
	snap, err := waitFor(ctx, changes, show, func(s sequencer.Snapshot) bool {
		return s.State == sequencer.Ready || s.State == sequencer.Failed
	})
	if err != nil {
		return err
	}

	if snap.State == sequencer.Ready && !opts.prepareOnly {
		seq.OnShareInvoked()
		if snap, err = waitFor(ctx, changes, show, shareSettled); err != nil {
			return err
		}
	}

	if opts.download {
		if err := saveDownload(out, seq, store, cfg.DownloadDir); err != nil {
			return err
		}
	}

	if snap.State == sequencer.Failed {
		return errors.New(snap.Status)
	}
	return nil
}

func loadAsset(path string) (domain.Asset, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("read %s: %w", path, err)
	}
	return domain.Asset{
		Name:        filepath.Base(path),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

// waitFor prints every change until done reports true.
func waitFor(ctx context.Context, changes <-chan sequencer.Snapshot, show func(sequencer.Snapshot), done func(sequencer.Snapshot) bool) (sequencer.Snapshot, error) {
	for {
		select {
		case <-ctx.Done():
			return sequencer.Snapshot{}, fmt.Errorf("waiting for relay: %w", ctx.Err())
		case s := <-changes:
			show(s)
			if done(s) {
				return s, nil
			}
		}
	}
}

// shareSettled reports whether s carries the outcome of a share tap.
func shareSettled(s sequencer.Snapshot) bool {
	switch s.Status {
	case sequencer.StatusOpening, sequencer.StatusPreparing, sequencer.StatusReady, sequencer.StatusEchoOnly:
		return false
	}
	return true
}

func saveDownload(out io.Writer, seq *sequencer.Sequencer, store *preview.Store, dir string) error {
	d, err := seq.OnDownloadRequested()
	if err != nil {
		return err
	}
	rc, err := store.Open(d.Resource)
	if err != nil {
		return err
	}
	defer rc.Close()

	name := d.Asset.Name
	if !d.Relayed {
		name = "original-" + name
	}
	dst := filepath.Join(dir, strings.ReplaceAll(name, string(filepath.Separator), "_"))
	if err := afero.WriteReader(fsys, dst, rc); err != nil {
		return fmt.Errorf("save download: %w", err)
	}
	fmt.Fprintf(out, "saved %s (%d bytes, %s)\n", dst, d.Asset.Size(), d.Asset.ContentType)
	return nil
}
