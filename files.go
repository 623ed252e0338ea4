package main

import (
	"context"
	"crypto/md5" //nolint:gosec // the service publishes MD5 content hashes
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/sharefile-go/internal/sharefile"
	"github.com/tonimelisma/sharefile-go/internal/source"
)

// maxParallelDeletes bounds the concurrent DELETE requests of one rm.
const maxParallelDeletes = 4

// partialSuffix marks a download that has not been verified yet.
const partialSuffix = ".partial"

// itemTimeLayout is the timestamp format in JSON output.
const itemTimeLayout = time.RFC3339

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [item]",
		Short: "List a folder (default: home)",
		Long: `List the children of a folder. An item is an id, a folder alias
(home, top, favorites, allshared) or an absolute path starting with "/".`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLs,
	}
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <item>",
		Short: "Display file or folder metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  runStat,
	}
}

func newMkdirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkdir <parent> <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(2),
		RunE:  runMkdir,
	}

	cmd.Flags().String("description", "", "folder description")
	cmd.Flags().Bool("overwrite", false, "replace an existing folder with the same name")

	return cmd
}

func newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <item>...",
		Short: "Delete files or folders",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRm,
	}

	cmd.Flags().Bool("single-version", false, "delete only the current version of a file")
	cmd.Flags().Bool("force-sync", false, "apply the deletion synchronously")

	return cmd
}

func newCpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cp <item> <target-folder>",
		Short: "Copy an item into a folder",
		Args:  cobra.ExactArgs(2),
		RunE:  runCp,
	}

	cmd.Flags().Bool("overwrite", false, "replace an existing item with the same name")

	return cmd
}

func newRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <item> <new-name>",
		Short: "Rename an item",
		Args:  cobra.ExactArgs(2),
		RunE:  runRename,
	}

	cmd.Flags().Bool("notify", false, "notify users of the change")

	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <item> [local-path]",
		Short: "Download a file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runGet,
	}
}

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <source> [folder]",
		Short: "Upload a file (default folder: home)",
		Long: `Upload a local file or any URI the vfs backends understand
(file://, s3://, gs://, az://, sftp://, ftp://) into a folder.

Uploads are streamed in chunks by default; --standard sends a single
multipart request instead.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runPut,
	}

	cmd.Flags().String("name", "", "remote file name (default: source name)")
	cmd.Flags().Bool("standard", false, "use the single-request standard upload")
	cmd.Flags().Bool("no-overwrite", false, "fail instead of replacing an existing file")
	cmd.Flags().Bool("notify", false, "send upload notifications")
	cmd.Flags().Bool("unzip", false, "extract a zip archive into the folder")

	return cmd
}

// resolveItem looks up an item by path when ref starts with "/" and by id
// or alias otherwise.
func resolveItem(ctx context.Context, client *sharefile.Client, ref string, withChildren bool) (*sharefile.Item, error) {
	if !strings.HasPrefix(ref, "/") {
		return client.GetItem(ctx, ref, withChildren)
	}

	item, err := client.GetItemByPath(ctx, ref, "")
	if err != nil || !withChildren || !item.IsFolder {
		return item, err
	}

	return client.GetItem(ctx, item.ID, true)
}

// resolveItemID returns ref unchanged unless it is a path.
func resolveItemID(ctx context.Context, client *sharefile.Client, ref string) (string, error) {
	if !strings.HasPrefix(ref, "/") {
		return ref, nil
	}

	item, err := client.GetItemByPath(ctx, ref, "")
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", ref, err)
	}

	return item.ID, nil
}

func runLs(cmd *cobra.Command, args []string) error {
	ref := sharefile.FolderHome
	if len(args) > 0 {
		ref = args[0]
	}

	ctx := cmd.Context()

	return withSession(ctx, func(cc *CLIContext, s *Session) error {
		cc.Logger.Debug("ls", slog.String("item", ref))

		item, err := resolveItem(ctx, s.Client, ref, true)
		if err != nil {
			return fmt.Errorf("listing %q: %w", ref, err)
		}

		if !item.IsFolder {
			return fmt.Errorf("%q is a file, not a folder", ref)
		}

		if cc.Flags.JSON {
			return printItemsJSON(cc.Stdout, item.Children)
		}

		printItemsTable(cc.Stdout, item.Children)

		return nil
	})
}

// itemJSON is the JSON output schema for a single item.
type itemJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FileName    string `json:"file_name,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	IsFolder    bool   `json:"is_folder"`
	Size        int64  `json:"size"`
	Hash        string `json:"hash,omitempty"`
	FileCount   int    `json:"file_count,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	ModifiedAt  string `json:"modified_at,omitempty"`
	CreatorName string `json:"creator_name,omitempty"`
}

func toItemJSON(item *sharefile.Item) itemJSON {
	out := itemJSON{
		ID:          item.ID,
		Name:        item.Name,
		FileName:    item.FileName,
		Description: item.Description,
		Type:        item.Type,
		IsFolder:    item.IsFolder,
		Size:        item.Size,
		Hash:        item.Hash,
		FileCount:   item.FileCount,
		ParentID:    item.ParentID,
		CreatorName: item.CreatorName,
	}

	if !item.CreatedAt.IsZero() {
		out.CreatedAt = item.CreatedAt.UTC().Format(itemTimeLayout)
	}

	if !item.ModifiedAt.IsZero() {
		out.ModifiedAt = item.ModifiedAt.UTC().Format(itemTimeLayout)
	}

	return out
}

func printItemsJSON(w io.Writer, items []sharefile.Item) error {
	out := make([]itemJSON, 0, len(items))
	for i := range items {
		out = append(out, toItemJSON(&items[i]))
	}

	return printJSON(w, out)
}

func printItemsTable(w io.Writer, items []sharefile.Item) {
	// Folders first, then alphabetical.
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsFolder != items[j].IsFolder {
			return items[i].IsFolder
		}

		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})

	headers := []string{"NAME", "SIZE", "MODIFIED", "ID"}
	rows := make([][]string, 0, len(items))

	for i := range items {
		name := items[i].Name
		size := formatSize(items[i].Size)

		if items[i].IsFolder {
			name = folderName(name + "/")
			size = fmt.Sprintf("%d items", items[i].FileCount)
		}

		rows = append(rows, []string{name, size, formatTime(items[i].ModifiedAt), items[i].ID})
	}

	printTable(w, headers, rows)
}

func runStat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withSession(ctx, func(cc *CLIContext, s *Session) error {
		item, err := resolveItem(ctx, s.Client, args[0], false)
		if err != nil {
			return fmt.Errorf("stat %q: %w", args[0], err)
		}

		if cc.Flags.JSON {
			return printJSON(cc.Stdout, toItemJSON(item))
		}

		printStat(cc.Stdout, item)

		return nil
	})
}

func printStat(w io.Writer, item *sharefile.Item) {
	kind := "file"
	if item.IsFolder {
		kind = "folder"
	}

	fmt.Fprintf(w, "Name:      %s\n", item.Name)
	fmt.Fprintf(w, "ID:        %s\n", item.ID)
	fmt.Fprintf(w, "Type:      %s\n", kind)

	if item.IsFolder {
		fmt.Fprintf(w, "Items:     %d\n", item.FileCount)
	} else {
		fmt.Fprintf(w, "Size:      %s (%d bytes)\n", formatSize(item.Size), item.Size)
	}

	if item.Hash != "" {
		fmt.Fprintf(w, "MD5:       %s\n", item.Hash)
	}

	if item.ParentID != "" {
		fmt.Fprintf(w, "Parent:    %s\n", item.ParentID)
	}

	if item.CreatorName != "" {
		fmt.Fprintf(w, "Creator:   %s\n", item.CreatorName)
	}

	fmt.Fprintf(w, "Created:   %s\n", formatTime(item.CreatedAt))
	fmt.Fprintf(w, "Modified:  %s\n", formatTime(item.ModifiedAt))

	if item.Description != "" {
		fmt.Fprintf(w, "Note:      %s\n", item.Description)
	}
}

func runMkdir(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	description, _ := cmd.Flags().GetString("description")
	overwrite, _ := cmd.Flags().GetBool("overwrite")

	return withSession(ctx, func(cc *CLIContext, s *Session) error {
		parentID, err := resolveItemID(ctx, s.Client, args[0])
		if err != nil {
			return err
		}

		folder, err := s.Client.CreateFolder(ctx, parentID, args[1], description, overwrite)
		if err != nil {
			return fmt.Errorf("creating folder %q: %w", args[1], err)
		}

		if cc.Flags.JSON {
			return printJSON(cc.Stdout, toItemJSON(folder))
		}

		cc.Statusf("Created folder %s (%s)\n", folder.Name, folder.ID)

		return nil
	})
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	singleVersion, _ := cmd.Flags().GetBool("single-version")
	forceSync, _ := cmd.Flags().GetBool("force-sync")

	return withSession(ctx, func(cc *CLIContext, s *Session) error {
		return deleteItems(ctx, cc, s.Client, args, singleVersion, forceSync)
	})
}

// deleteItems deletes refs with bounded parallelism. Every ref is
// attempted; failures are reported together.
func deleteItems(
	ctx context.Context, cc *CLIContext, client *sharefile.Client, refs []string, singleVersion, forceSync bool,
) error {
	errs := make([]error, len(refs))
	deleted := make([]bool, len(refs))

	var g errgroup.Group
	g.SetLimit(maxParallelDeletes)

	for i, ref := range refs {
		g.Go(func() error {
			id, err := resolveItemID(ctx, client, ref)
			if err == nil {
				err = client.DeleteItem(ctx, id, singleVersion, forceSync)
			}

			if err != nil {
				errs[i] = fmt.Errorf("deleting %q: %w", ref, err)
				return nil
			}

			deleted[i] = true

			return nil
		})
	}

	_ = g.Wait() // workers never return errors; failures are collected in errs

	// Workers only record outcomes; output is written here in argument order.
	for i, ref := range refs {
		if deleted[i] {
			cc.Statusf("Deleted %s\n", ref)
		}
	}

	return errors.Join(errs...)
}

func runCp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	overwrite, _ := cmd.Flags().GetBool("overwrite")

	return withSession(ctx, func(cc *CLIContext, s *Session) error {
		itemID, err := resolveItemID(ctx, s.Client, args[0])
		if err != nil {
			return err
		}

		targetID, err := resolveItemID(ctx, s.Client, args[1])
		if err != nil {
			return err
		}

		item, err := s.Client.CopyItem(ctx, targetID, itemID, overwrite)
		if err != nil {
			return fmt.Errorf("copying %q: %w", args[0], err)
		}

		if cc.Flags.JSON {
			return printJSON(cc.Stdout, toItemJSON(item))
		}

		cc.Statusf("Copied %s to %s (%s)\n", args[0], args[1], item.ID)

		return nil
	})
}

func runRename(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	notify, _ := cmd.Flags().GetBool("notify")

	return withSession(ctx, func(cc *CLIContext, s *Session) error {
		itemID, err := resolveItemID(ctx, s.Client, args[0])
		if err != nil {
			return err
		}

		item, err := s.Client.UpdateItem(ctx, itemID, map[string]any{
			"Name":     args[1],
			"FileName": args[1],
		}, false, notify)
		if err != nil {
			return fmt.Errorf("renaming %q: %w", args[0], err)
		}

		if cc.Flags.JSON {
			return printJSON(cc.Stdout, toItemJSON(item))
		}

		cc.Statusf("Renamed %s to %s\n", args[0], item.Name)

		return nil
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withSession(ctx, func(cc *CLIContext, s *Session) error {
		item, err := resolveItem(ctx, s.Client, args[0], false)
		if err != nil {
			return fmt.Errorf("resolving %q: %w", args[0], err)
		}

		if item.IsFolder {
			return fmt.Errorf("%q is a folder, not a file", args[0])
		}

		localPath := item.FileName
		if localPath == "" {
			localPath = item.Name
		}

		if len(args) > 1 {
			localPath = args[1]
		}

		n, err := downloadFile(ctx, cc, s.Transfer, item, localPath)
		if err != nil {
			return err
		}

		cc.Statusf("Downloaded %s (%s)\n", localPath, formatSize(n))

		return nil
	})
}

// downloadFile downloads item into a .partial file, verifies its MD5 when
// the service published one and renames it into place.
func downloadFile(
	ctx context.Context, cc *CLIContext, client *sharefile.Client, item *sharefile.Item, localPath string,
) (int64, error) {
	partialPath := localPath + partialSuffix

	f, err := os.Create(partialPath)
	if err != nil {
		return 0, fmt.Errorf("creating partial file for download: %w", err)
	}

	h := md5.New() //nolint:gosec // content hash, not security

	n, dlErr := client.DownloadItem(ctx, item.ID, io.MultiWriter(f, h))
	closeErr := f.Close()

	if dlErr == nil {
		dlErr = closeErr
	}

	if dlErr != nil {
		os.Remove(partialPath)
		return 0, fmt.Errorf("downloading %q: %w", item.Name, dlErr)
	}

	if err := verifyDownloadHash(item, hex.EncodeToString(h.Sum(nil))); err != nil {
		os.Remove(partialPath)
		return 0, err
	}

	if err := os.Rename(partialPath, localPath); err != nil {
		return 0, fmt.Errorf("renaming download to %q: %w", localPath, err)
	}

	cc.Logger.Debug("download complete",
		slog.String("item_id", item.ID),
		slog.String("local_path", localPath),
		slog.Int64("bytes", n),
	)

	return n, nil
}

// verifyDownloadHash compares the local MD5 with the item's. No-op when the
// item has no hash.
func verifyDownloadHash(item *sharefile.Item, localHash string) error {
	if item.Hash == "" {
		return nil
	}

	if !strings.EqualFold(item.Hash, localHash) {
		return fmt.Errorf("hash mismatch after download of %q (deleted, try again)", item.Name)
	}

	return nil
}

func runPut(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	folderRef := sharefile.FolderHome
	if len(args) > 1 {
		folderRef = args[1]
	}

	name, _ := cmd.Flags().GetString("name")
	standard, _ := cmd.Flags().GetBool("standard")
	noOverwrite, _ := cmd.Flags().GetBool("no-overwrite")
	notify, _ := cmd.Flags().GetBool("notify")
	unzip, _ := cmd.Flags().GetBool("unzip")

	src, err := source.Open(args[0])
	if err != nil {
		return err
	}
	defer src.Close()

	return withSession(ctx, func(cc *CLIContext, s *Session) error {
		folderID, err := resolveItemID(ctx, s.Client, folderRef)
		if err != nil {
			return err
		}

		opts := sharefile.UploadOptions{
			Unzip:     unzip,
			Overwrite: !noOverwrite,
			Notify:    notify,
			ChunkSize: int(cc.Profile.ChunkSize),
		}

		if cc.showProgress() {
			opts.Progress = func(sent, total int64) {
				fmt.Fprintf(cc.Stderr, "\r%s", formatProgress(sent, total))
			}
		}

		cc.Logger.Debug("put",
			slog.String("source", src.URI()),
			slog.String("folder_id", folderID),
			slog.Int64("size", src.Size()),
			slog.Bool("standard", standard),
		)

		res, err := uploadSource(ctx, s.Transfer, src, folderID, name, standard, opts)

		if opts.Progress != nil {
			fmt.Fprintln(cc.Stderr)
		}

		if err != nil {
			return fmt.Errorf("uploading %s: %w", src.URI(), err)
		}

		cc.Logger.Debug("upload response", slog.String("body", res.Body))

		if !res.Complete {
			return fmt.Errorf("uploading %s: %w after %d chunk(s): %s",
				src.URI(), sharefile.ErrChunkRejected, res.Chunks, strings.TrimSpace(res.Body))
		}

		cc.Statusf("Uploaded %s (%s)\n", src.Name(), formatSize(src.Size()))

		return nil
	})
}

// uploadSource runs a streamed or standard upload. A standard upload is a
// single request, so any response completes it.
func uploadSource(
	ctx context.Context, client *sharefile.Client, src io.Reader,
	folderID, name string, standard bool, opts sharefile.UploadOptions,
) (*sharefile.UploadResult, error) {
	if !standard {
		return client.UploadStreamedResult(ctx, src, folderID, name, opts)
	}

	body, err := client.UploadStandard(ctx, src, folderID, name, opts)
	if err != nil {
		return nil, err
	}

	return &sharefile.UploadResult{Body: body, Complete: true, Chunks: 1}, nil
}
