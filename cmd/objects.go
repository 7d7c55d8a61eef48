package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"sniffstore/core/detect"
	"sniffstore/core/storage"
	"sniffstore/core/utils"
	"sniffstore/feature/files"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// putCmd uploads a local file.
var putCmd = &cobra.Command{
	Use:   "put <key> <file>",
	Short: "Upload a local file with its detected content type",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		opts, err := uploadOptions(cmd)
		if err != nil {
			return err
		}
		res, err := rt.service.PutFile(cmd.Context(), args[0], args[1], opts)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

// uploadCmd uploads standard input.
var uploadCmd = &cobra.Command{
	Use:   "upload <key>",
	Short: "Upload standard input with its detected content type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		opts, err := uploadOptions(cmd)
		if err != nil {
			return err
		}
		res, err := rt.service.Upload(cmd.Context(), args[0], detect.Stream{Reader: cmd.InOrStdin()}, opts)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func uploadOptions(cmd *cobra.Command) (files.UploadOptions, error) {
	aclFlag, _ := cmd.Flags().GetString("acl")
	meta, _ := cmd.Flags().GetStringToString("meta")

	opts := files.UploadOptions{Metadata: meta}
	if aclFlag != "" {
		acl, err := storage.ParseACL(aclFlag)
		if err != nil {
			return opts, err
		}
		opts.ACL = acl
	}
	return opts, nil
}

// getCmd downloads an object.
var getCmd = &cobra.Command{
	Use:   "get <key> [dest]",
	Short: "Download an object to a file or standard output",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		rc, err := rt.service.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer rc.Close()

		var w io.Writer = cmd.OutOrStdout()
		if len(args) == 2 && args[1] != "-" {
			f, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[1], err)
			}
			defer f.Close()
			w = f
		}

		n, err := io.Copy(w, rc)
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", args[0], err)
		}
		rt.logger.Debug("Downloaded object", zap.String("key", args[0]), zap.Int64("size", n))
		return nil
	},
}

// rmCmd deletes objects.
var rmCmd = &cobra.Command{
	Use:   "rm <key>...",
	Short: "Delete objects",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		for _, key := range args {
			if err := rt.service.Delete(cmd.Context(), key); err != nil {
				return fmt.Errorf("failed to delete %s: %w", key, err)
			}
		}
		return nil
	},
}

// existsCmd reports whether an object exists.
var existsCmd = &cobra.Command{
	Use:   "exists <key>",
	Short: "Print whether an object exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		ok, err := rt.service.Exists(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ok)
		return nil
	},
}

// statCmd prints object metadata.
var statCmd = &cobra.Command{
	Use:   "stat <key>",
	Short: "Print object metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		info, err := rt.service.Stat(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), info)
	},
}

// aclCmd groups the ACL subcommands.
var aclCmd = &cobra.Command{
	Use:   "acl",
	Short: "Read or change object access control",
}

var aclGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the ACL of an object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		acl, err := rt.service.GetACL(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), acl)
	},
}

var aclSetCmd = &cobra.Command{
	Use:   "set <key> <acl>",
	Short: "Apply a canned ACL to an object",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		acl, err := storage.ParseACL(args[1])
		if err != nil {
			return err
		}
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		return rt.service.PutACL(cmd.Context(), args[0], acl)
	},
}

// shareCmd makes an object public.
var shareCmd = &cobra.Command{
	Use:   "share <key>",
	Short: "Make an object publicly readable and print its URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		u, err := rt.service.Share(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), u)
		return nil
	},
}

// urlCmd prints an object URL.
var urlCmd = &cobra.Command{
	Use:   "url <key>",
	Short: "Print an object URL, presigned when --expires is set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		expiresFlag, _ := cmd.Flags().GetString("expires")
		download, _ := cmd.Flags().GetBool("download")
		filename, _ := cmd.Flags().GetString("filename")

		expires, err := utils.ParseExpiration(expiresFlag)
		if err != nil {
			return err
		}

		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}

		var u string
		if download {
			u, err = rt.service.DownloadURL(cmd.Context(), args[0], filename, expires)
		} else {
			u, err = rt.service.FileURL(cmd.Context(), args[0], expires)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), u)
		return nil
	},
}

// lsCmd lists objects.
var lsCmd = &cobra.Command{
	Use:   "ls [prefix]",
	Short: "List objects under a prefix",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("max")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		var prefix string
		if len(args) == 1 {
			prefix = args[0]
		}

		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		objects, err := rt.service.List(cmd.Context(), prefix, limit)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), objects)
		}
		for _, o := range objects {
			fmt.Fprintf(cmd.OutOrStdout(), "%10d  %s  %s\n", o.Size, o.LastModified.Format(time.RFC3339), o.Key)
		}
		return nil
	},
}

// waitCmd blocks until an object exists.
var waitCmd = &cobra.Command{
	Use:   "wait <key>",
	Short: "Wait until an object exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")

		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if timeout > 0 {
			var cancel func()
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		if err := rt.service.WaitUntilExists(ctx, args[0]); err != nil {
			return err
		}
		rt.logger.Info("Object is available", zap.String("key", args[0]))
		return nil
	},
}

func init() {
	putCmd.Flags().String("acl", "", "Canned ACL (default from STORAGE_FILE_ACL)")
	uploadCmd.Flags().String("acl", "", "Canned ACL (default from STORAGE_DEFAULT_ACL)")
	for _, c := range []*cobra.Command{putCmd, uploadCmd} {
		c.Flags().StringToString("meta", nil, "User metadata as key=value pairs")
	}

	urlCmd.Flags().String("expires", "", "Validity of a presigned URL, e.g. 3600, 1h or \"+10 minutes\"")
	urlCmd.Flags().Bool("download", false, "Force download as an attachment")
	urlCmd.Flags().String("filename", "", "Attachment file name (default: key base name)")

	lsCmd.Flags().Int("max", storage.MaxListKeys, "Maximum number of keys")
	lsCmd.Flags().Bool("json", false, "Print results as JSON")

	waitCmd.Flags().Duration("timeout", time.Minute, "Give up after this long (0 waits forever)")

	aclCmd.AddCommand(aclGetCmd, aclSetCmd)
	RootCmd.AddCommand(putCmd, uploadCmd, getCmd, rmCmd, existsCmd, statCmd, aclCmd, shareCmd, urlCmd, lsCmd, waitCmd)
}
