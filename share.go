package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/sharefile-go/internal/sharefile"
)

func newShareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share <item>...",
		Short: "Create a send share for one or more items",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runShare,
	}

	cmd.Flags().String("title", "", "share title")
	cmd.Flags().String("expires", "", "expiration date (ISO 8601)")
	cmd.Flags().Bool("require-login", false, "require recipients to sign in")
	cmd.Flags().Int("max-downloads", 0, "download limit (0: unlimited)")
	cmd.Flags().Bool("notify", false, "notify the share creator on access")

	return cmd
}

func newLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <item>",
		Short: "Print the web app link of an item",
		Args:  cobra.ExactArgs(1),
		RunE:  runLink,
	}
}

func newACLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "acl <item> [user-id]",
		Short: "Show access controls of an item",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runACL,
	}
}

func newThumbnailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thumbnail <item>",
		Short: "Print the thumbnail URL of a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runThumbnail,
	}

	cmd.Flags().Int("size", sharefile.ThumbnailMedium, "thumbnail size (75 or 600)")

	return cmd
}

// shareJSON is the JSON output schema of `share --json`.
type shareJSON struct {
	ID             string `json:"id"`
	URI            string `json:"uri"`
	ShareType      string `json:"share_type"`
	Title          string `json:"title,omitempty"`
	ExpirationDate string `json:"expiration_date,omitempty"`
}

func runShare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	title, _ := cmd.Flags().GetString("title")
	expires, _ := cmd.Flags().GetString("expires")
	requireLogin, _ := cmd.Flags().GetBool("require-login")
	maxDownloads, _ := cmd.Flags().GetInt("max-downloads")
	notify, _ := cmd.Flags().GetBool("notify")

	return withSession(ctx, func(cc *CLIContext, s *Session) error {
		ids := make([]string, 0, len(args))

		for _, ref := range args {
			id, err := resolveItemID(ctx, s.Client, ref)
			if err != nil {
				return err
			}

			ids = append(ids, id)
		}

		req := sharefile.NewSendShare(title, ids...)
		req.ExpirationDate = expires
		req.RequireLogin = requireLogin
		req.MaxDownloads = maxDownloads

		share, err := s.Client.CreateShare(ctx, req, notify)
		if err != nil {
			return fmt.Errorf("creating share: %w", err)
		}

		if cc.Flags.JSON {
			return printJSON(cc.Stdout, shareJSON{
				ID:             share.ID,
				URI:            share.URI,
				ShareType:      share.ShareType,
				Title:          share.Title,
				ExpirationDate: share.ExpirationDate,
			})
		}

		fmt.Fprintln(cc.Stdout, share.URI)

		return nil
	})
}

// redirectionJSON is the JSON output schema of `link` and `thumbnail`.
type redirectionJSON struct {
	URI string `json:"uri"`
}

func runLink(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withSession(ctx, func(cc *CLIContext, s *Session) error {
		id, err := resolveItemID(ctx, s.Client, args[0])
		if err != nil {
			return err
		}

		link, err := s.Client.GetWebAppLink(ctx, id)
		if err != nil {
			return fmt.Errorf("getting web link for %q: %w", args[0], err)
		}

		return printRedirection(cc, link)
	})
}

func runThumbnail(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	size, _ := cmd.Flags().GetInt("size")

	return withSession(ctx, func(cc *CLIContext, s *Session) error {
		id, err := resolveItemID(ctx, s.Client, args[0])
		if err != nil {
			return err
		}

		thumb, err := s.Client.GetThumbnailURL(ctx, id, size)
		if err != nil {
			return fmt.Errorf("getting thumbnail for %q: %w", args[0], err)
		}

		return printRedirection(cc, thumb)
	})
}

func printRedirection(cc *CLIContext, r *sharefile.Redirection) error {
	if cc.Flags.JSON {
		return printJSON(cc.Stdout, redirectionJSON{URI: r.URI})
	}

	fmt.Fprintln(cc.Stdout, r.URI)

	return nil
}

// aclJSON is the JSON output schema of one access control.
type aclJSON struct {
	PrincipalID string   `json:"principal_id,omitempty"`
	Principal   string   `json:"principal,omitempty"`
	Email       string   `json:"email,omitempty"`
	Permissions []string `json:"permissions"`
}

func runACL(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withSession(ctx, func(cc *CLIContext, s *Session) error {
		id, err := resolveItemID(ctx, s.Client, args[0])
		if err != nil {
			return err
		}

		var acls []sharefile.AccessControl

		if len(args) > 1 {
			acl, err := s.Client.GetAccessControl(ctx, id, args[1])
			if err != nil {
				return fmt.Errorf("getting access control of %q for %q: %w", args[0], args[1], err)
			}

			acls = []sharefile.AccessControl{*acl}
		} else {
			acls, err = s.Client.ListAccessControls(ctx, id)
			if err != nil {
				return fmt.Errorf("listing access controls of %q: %w", args[0], err)
			}
		}

		if cc.Flags.JSON {
			out := make([]aclJSON, 0, len(acls))
			for i := range acls {
				out = append(out, toACLJSON(&acls[i]))
			}

			return printJSON(cc.Stdout, out)
		}

		printACLTable(cc.Stdout, acls)

		return nil
	})
}

func toACLJSON(acl *sharefile.AccessControl) aclJSON {
	out := aclJSON{Permissions: permissions(acl)}

	if acl.Principal != nil {
		out.PrincipalID = acl.Principal.ID
		out.Principal = acl.Principal.Name
		out.Email = acl.Principal.Email
	}

	return out
}

// permissions lists the granted rights of acl in a fixed order.
func permissions(acl *sharefile.AccessControl) []string {
	perms := make([]string, 0, 8)

	for _, p := range []struct {
		granted bool
		name    string
	}{
		{acl.IsOwner, "owner"},
		{acl.CanView, "view"},
		{acl.CanDownload, "download"},
		{acl.CanUpload, "upload"},
		{acl.CanDelete, "delete"},
		{acl.CanManagePermissions, "manage"},
		{acl.NotifyOnUpload, "notify-upload"},
		{acl.NotifyOnDownload, "notify-download"},
	} {
		if p.granted {
			perms = append(perms, p.name)
		}
	}

	return perms
}

func printACLTable(w io.Writer, acls []sharefile.AccessControl) {
	rows := make([][]string, 0, len(acls))

	for i := range acls {
		name, email := "-", "-"
		if p := acls[i].Principal; p != nil {
			name, email = p.Name, p.Email
		}

		rows = append(rows, []string{name, email, strings.Join(permissions(&acls[i]), ",")})
	}

	printTable(w, []string{"PRINCIPAL", "EMAIL", "PERMISSIONS"}, rows)
}
