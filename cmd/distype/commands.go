package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/distype/internal/bank"
	"github.com/hammamikhairi/distype/internal/config"
	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/feedback"
	"github.com/hammamikhairi/distype/internal/phrasebook"
)

func newSayCmd(a *app) *cobra.Command {
	var (
		local bool
		id    string
	)
	cmd := &cobra.Command{
		Use:   "say [TEXT...]",
		Short: "Speak text (or a saved statement) and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if id == "" && strings.TrimSpace(text) == "" {
				return domain.ErrEmptyText
			}

			st, err := a.newSpeech(nil)
			if err != nil {
				return err
			}
			book, err := a.openBook(st.disp)
			if err != nil {
				return err
			}

			prefer := a.cfg.Speech.PreferOnline && !local
			ctx := cmd.Context()
			var u interface {
				Wait() (domain.Engine, error)
			}
			if id != "" {
				utt, err := book.SayStatement(ctx, id, prefer)
				if utt == nil {
					return err
				}
				if err != nil {
					a.log.Warn("say: %v", err)
				}
				u = utt
			} else {
				utt, err := book.Say(ctx, text, prefer)
				if err != nil {
					return err
				}
				u = utt
			}

			engine, err := u.Wait()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "spoken (%s voice)\n", engine)
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "use the on-device voice only")
	cmd.Flags().StringVar(&id, "id", "", "speak the saved statement with this ID and count its use")
	return cmd
}

func newCategoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"cat"},
		Short:   "Manage categories",
	}

	var desc, sorted bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			book, err := a.openBook(nil)
			if err != nil {
				return err
			}
			cats, err := book.Categories(cmd.Context())
			if err != nil {
				return err
			}
			if sorted || desc {
				phrasebook.SortCategories(cats, desc)
			}
			out := cmd.OutOrStdout()
			for _, c := range cats {
				fmt.Fprintf(out, "%s\t%s\n", c.ID, c.Label)
			}
			return nil
		},
	}
	list.Flags().BoolVar(&sorted, "sort", false, "sort alphabetically")
	list.Flags().BoolVar(&desc, "desc", false, "sort alphabetically, descending")

	add := &cobra.Command{
		Use:   "add LABEL...",
		Short: "Create a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := a.openBook(nil)
			if err != nil {
				return err
			}
			c, err := book.CreateCategory(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.ID, c.Label)
			return nil
		},
	}

	rename := &cobra.Command{
		Use:   "rename ID LABEL...",
		Short: "Rename a category",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := a.openBook(nil)
			if err != nil {
				return err
			}
			return book.RenameCategory(cmd.Context(), args[0], strings.Join(args[1:], " "))
		},
	}

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := a.openBook(nil)
			if err != nil {
				return err
			}
			return book.DeleteCategory(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(list, add, rename, rm)
	return cmd
}

func newStatementCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "statement",
		Aliases: []string{"st"},
		Short:   "Manage saved statements",
	}

	list := &cobra.Command{
		Use:   "list CATEGORY_ID",
		Short: "List a category's statements, most used first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := a.openBook(nil)
			if err != nil {
				return err
			}
			sts, err := book.Statements(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printStatements(cmd.OutOrStdout(), sts)
			return nil
		},
	}

	var category string
	add := &cobra.Command{
		Use:   "add TEXT...",
		Short: "Save a statement (into the default category unless --category)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := a.openBook(nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			catID := category
			if catID == "" {
				def, err := book.Bootstrap(ctx)
				if err != nil {
					return err
				}
				catID = def.ID
			}
			st, err := book.AddStatement(ctx, strings.Join(args, " "), catID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", st.ID, st.Rating, st.Text)
			return nil
		},
	}
	add.Flags().StringVar(&category, "category", "", "category ID")

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := a.openBook(nil)
			if err != nil {
				return err
			}
			return book.DeleteStatement(cmd.Context(), args[0])
		},
	}

	move := &cobra.Command{
		Use:   "move ID CATEGORY_ID",
		Short: "Move a statement to another category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := a.openBook(nil)
			if err != nil {
				return err
			}
			return book.MoveStatement(cmd.Context(), args[0], args[1])
		},
	}

	rename := &cobra.Command{
		Use:   "rename ID TEXT...",
		Short: "Change a statement's text",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := a.openBook(nil)
			if err != nil {
				return err
			}
			return book.RenameStatement(cmd.Context(), args[0], strings.Join(args[1:], " "))
		},
	}

	find := &cobra.Command{
		Use:   "find QUERY...",
		Short: "Search all statements",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := a.openBook(nil)
			if err != nil {
				return err
			}
			matches, err := book.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range matches {
				fmt.Fprintf(out, "%s\t%d\t%s\t[%s]\n", m.Statement.ID, m.Statement.Rating, m.Statement.Text, m.Category)
			}
			return nil
		},
	}

	cmd.AddCommand(list, add, rm, move, rename, find)
	return cmd
}

func printStatements(out io.Writer, sts []domain.Statement) {
	for _, st := range sts {
		fmt.Fprintf(out, "%s\t%d\t%s\n", st.ID, st.Rating, st.Text)
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE|BANK",
		Short: "Import a phrase bank from a JSON file or a built-in bank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var b *domain.Bank
			if _, err := os.Stat(args[0]); err == nil {
				if b, err = bank.LoadFile(args[0]); err != nil {
					return err
				}
			} else {
				src := bank.NewMemorySource(a.log.Named("bank"))
				if b, err = src.Get(ctx, args[0]); err != nil {
					return fmt.Errorf("bank %q: %w", args[0], err)
				}
			}

			book, err := a.openBook(nil)
			if err != nil {
				return err
			}
			stats, err := book.Import(ctx, b)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %s\n", b.Name, stats)
			return nil
		},
	}
}

func newBanksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "banks",
		Short: "List built-in phrase banks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src := bank.NewMemorySource(a.log.Named("bank"))
			sums, err := src.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range sums {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d categories\t%d statements\n", s.Name, s.Categories, s.Statements)
			}
			return nil
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	var to, toPath, user string
	cmd := &cobra.Command{
		Use:   "migrate --to BACKEND --to-path PATH",
		Short: "Copy every category and statement into another store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if to == a.cfg.Store.Backend && toPath == a.cfg.Store.Path {
				return errors.New("migrate: source and destination are the same store")
			}
			src, err := a.openStore()
			if err != nil {
				return err
			}
			if user == "" {
				user = a.cfg.Store.User
			}
			dst, closeDst, err := openBackend(to, toPath, user, a.log.Named("store"))
			if err != nil {
				return err
			}
			a.closers = append(a.closers, closeDst)

			stats, err := phrasebook.Migrate(cmd.Context(), src, dst, a.log.Named("migrate"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated to %s %s: %s\n", to, toPath, stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", config.BackendDocument, "destination backend: memory, sql or doc")
	cmd.Flags().StringVar(&toPath, "to-path", ".distype/phrases.json", "destination store file")
	cmd.Flags().StringVar(&user, "user", "", "destination user (document store)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		out    string
		remote bool
	)
	cmd := &cobra.Command{
		Use:   "export --out FILE TEXT...",
		Short: "Synthesize text into an audio file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return domain.ErrEmptyText
			}
			if out == "" {
				return errors.New("export: --out is required")
			}

			var (
				audio []byte
				err   error
			)
			if remote {
				p := a.newProvider("")
				if p == nil {
					return fmt.Errorf("export: provider %q: %w", a.cfg.Speech.Provider, domain.ErrUnavailable)
				}
				audio, err = p.Synthesize(cmd.Context(), text)
			} else {
				audio, err = a.newLocal(nil).Synthesize(cmd.Context(), text)
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, audio, 0o644); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(audio), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (WAV from the local voice, MP3/WAV from online voices)")
	cmd.Flags().BoolVar(&remote, "remote", false, "use the online voice")
	return cmd
}

func newFeedbackCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "feedback --email ADDRESS TEXT...",
		Short: "Send feedback to the developers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				email = a.cfg.Feedback.Email
			}
			c := feedback.NewClient(a.cfg.Feedback.URL, a.log.Named("feedback"))
			if err := c.Submit(cmd.Context(), email, strings.Join(args, " ")); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "thank you, feedback sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "reply address")
	return cmd
}

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the synthesized audio cache",
	}
	info := &cobra.Command{
		Use:   "info",
		Short: "Show cache usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			i := a.newCache().Info()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "enabled:\t%v\n", i.Enabled)
			fmt.Fprintf(out, "dir:\t%s\n", a.cfg.Cache.Dir)
			fmt.Fprintf(out, "files:\t%d\n", i.DiskEntries)
			fmt.Fprintf(out, "size:\t%.1f MB", float64(i.DiskBytes)/(1<<20))
			if i.LimitBytes > 0 {
				fmt.Fprintf(out, " of %d MB", i.LimitBytes>>20)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.newCache().Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
			return nil
		},
	}
	cmd.AddCommand(info, clearCmd)
	return cmd
}
