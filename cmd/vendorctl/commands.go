package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"era-vendors-api/internal/auth"
	"era-vendors-api/internal/models"
	"era-vendors-api/internal/store"
	"era-vendors-api/internal/vendorpage"

	"github.com/spf13/cobra"
)

// storeOpener returns the vendor store and a function releasing it.
type storeOpener func(ctx context.Context) (store.VendorStore, func() error, error)

type app struct {
	open  storeOpener
	actor string
}

// session is one page over an open store. failed holds the first storage error of a commit.
type session struct {
	page   *vendorpage.Page
	close  func() error
	failed error
}

func (a *app) session(ctx context.Context) (*session, error) {
	vendors, release, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	s := &session{close: release}
	page, err := vendorpage.New(ctx, vendors, auth.StaticUser(a.actor),
		vendorpage.WithErrorHandler(func(op string, err error) {
			if s.failed == nil {
				s.failed = fmt.Errorf("%s vendor: %w", op, err)
			}
		}),
	)
	if err != nil {
		release()
		return nil, err
	}
	s.page = page
	return s, nil
}

func (s *session) Close() {
	s.page.Close()
	if s.close != nil {
		_ = s.close()
	}
}

func newRootCmd(open storeOpener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:   "vendorctl",
		Short: "Manage vendors from the command line",
		Long: `vendorctl lists, adds, edits and deletes vendors in the database named by DB_DSN.

Examples:
  vendorctl list
  vendorctl add --name "Acme Supplies" --email sales@acme.test
  vendorctl edit <id> --phone "+1 555 0100"
  vendorctl delete <id> <id> --yes
  vendorctl delete --selected-all`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.actor, "as", os.Getenv("USER"), "Name recorded in vendor history")

	root.AddCommand(
		a.listCmd(),
		a.showCmd(),
		a.addCmd(),
		a.editCmd(),
		a.deleteCmd(),
	)
	return root
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all vendors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			renderVendors(cmd.OutOrStdout(), s.page.Vendors(), s.page.IsSelected)
			return nil
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a vendor and its change history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			v, ok := s.page.Vendor(args[0])
			if !ok {
				return fmt.Errorf("vendor %s: %w", args[0], vendorpage.ErrVendorNotFound)
			}
			if err := s.page.OpenEdit(v.ID); err != nil {
				return err
			}
			defer s.page.CancelForm()
			renderVendor(cmd.OutOrStdout(), v, s.page.HistorySummary(), s.page.History())
			return nil
		},
	}
}

// fieldFlags registers one string flag per editable field, named like the field key with dashes.
func fieldFlags(cmd *cobra.Command) {
	for _, field := range models.EditableFields {
		cmd.Flags().String(flagName(field), "", strings.ReplaceAll(field, "_", " "))
	}
}

func flagName(field string) string { return strings.ReplaceAll(field, "_", "-") }

// applyFlags writes the flags the user actually passed into the open form.
func applyFlags(cmd *cobra.Command, page *vendorpage.Page) (int, error) {
	n := 0
	for _, field := range models.EditableFields {
		f := cmd.Flags().Lookup(flagName(field))
		if f == nil || !f.Changed {
			continue
		}
		if err := page.UpdateField(field, f.Value.String()); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (a *app) addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a vendor",
		Long:  "Add a vendor. Contact person, email and phone default to N/A when not given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			s.page.OpenAdd()
			if _, err := applyFlags(cmd, s.page); err != nil {
				return err
			}
			return a.submit(cmd, s)
		},
	}
	fieldFlags(cmd)
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a vendor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.page.OpenEdit(args[0]); err != nil {
				return fmt.Errorf("vendor %s: %w", args[0], err)
			}
			n, err := applyFlags(cmd, s.page)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("No fields given, saving unchanged."))
			}
			return a.submit(cmd, s)
		},
	}
	fieldFlags(cmd)
	return cmd
}

func (a *app) submit(cmd *cobra.Command, s *session) error {
	title := s.page.FormTitle()
	if err := s.page.SubmitForm(cmd.Context()); err != nil {
		return err
	}
	if s.failed != nil {
		return s.failed
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: done\n", title)
	renderVendors(cmd.OutOrStdout(), s.page.Vendors(), nil)
	return nil
}

func (a *app) deleteCmd() *cobra.Command {
	var (
		yes bool
		all bool
	)
	cmd := &cobra.Command{
		Use:   "delete [id...]",
		Short: "Delete one or more vendors",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("give vendor ids or --selected-all, not both")
			}
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			switch {
			case all:
				if !s.page.AllSelected() {
					s.page.ToggleAll()
				}
				if err := s.page.DeleteSelected(); err != nil {
					return err
				}
			case len(args) == 1:
				if err := s.page.DeleteRow(args[0]); err != nil {
					return fmt.Errorf("vendor %s: %w", args[0], err)
				}
			default:
				for _, id := range args {
					if s.page.IsSelected(id) {
						continue
					}
					if !s.page.ToggleRow(id) {
						fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("Skipping unknown vendor "+id))
					}
				}
				if err := s.page.DeleteSelected(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if !yes {
				ok, err := confirm(cmd.InOrStdin(), out, s.page.ConfirmPrompt())
				if err != nil {
					return err
				}
				if !ok {
					s.page.CancelDelete()
					fmt.Fprintln(out, mutedStyle.Render("Cancelled."))
					return nil
				}
			}

			before := len(s.page.Vendors())
			if err := s.page.ConfirmDelete(cmd.Context()); err != nil {
				return err
			}
			if s.failed != nil {
				return s.failed
			}
			fmt.Fprintf(out, "Deleted %d vendor(s)\n", before-len(s.page.Vendors()))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVar(&all, "selected-all", false, "Select every vendor and delete them")
	return cmd
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintln(out, warnStyle.Render(prompt))
	fmt.Fprint(out, bannerStyle.Render("Type 'yes' to confirm: "))
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "yes" || answer == "y", nil
}
