package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"s3snap/internal/cli"
	"s3snap/pkg/logger"
)

var envFile string

var latestCmdFlags cli.LatestFlags
var rootCmd = &cobra.Command{
	Use:   "s3snap",
	Short: "s3snap moves snapshot files in and out of an S3 bucket.",
	Long:  `s3snap moves snapshot files in and out of an S3 bucket. Run without a command, it prints the object whose name ends in the highest number.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, func(ctx context.Context, env cli.Env) error {
			return cli.Latest(ctx, env, latestCmdFlags, "")
		})
	},
}

var latestCmd = &cobra.Command{
	Use:   "latest [bucket]",
	Short: "Print the object with the highest trailing number.",
	Long:  `Print the object with the highest trailing number. Only the first listing page is inspected.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var bucket string
		if len(args) == 1 {
			bucket = args[0]
		}
		run(cmd, func(ctx context.Context, env cli.Env) error {
			return cli.Latest(ctx, env, latestCmdFlags, bucket)
		})
	},
}

var uploadCmdFlags cli.BucketFlags
var uploadCmd = &cobra.Command{
	Use:   "upload [file] [key]",
	Short: "Upload a file.",
	Long:  `Upload a file. The key defaults to the file name.`,
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		var key string
		if len(args) == 2 {
			key = args[1]
		}
		run(cmd, func(ctx context.Context, env cli.Env) error {
			return cli.Upload(ctx, env, uploadCmdFlags, args[0], key)
		})
	},
}

var downloadCmdFlags cli.BucketFlags
var downloadCmd = &cobra.Command{
	Use:   "download [key] [file]",
	Short: "Download an object.",
	Long:  `Download an object. The file defaults to the key.`,
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		var file string
		if len(args) == 2 {
			file = args[1]
		}
		run(cmd, func(ctx context.Context, env cli.Env) error {
			return cli.Download(ctx, env, downloadCmdFlags, args[0], file)
		})
	},
}

var deleteCmdFlags cli.BucketFlags
var deleteCmd = &cobra.Command{
	Use:   "delete [key]",
	Short: "Delete an object.",
	Long:  `Delete an object. Deleting a key that does not exist succeeds on S3.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, func(ctx context.Context, env cli.Env) error {
			return cli.Delete(ctx, env, deleteCmdFlags, args[0])
		})
	},
}

var listCmdFlags cli.ListFlags
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of objects.",
	Long:  `List one page of objects with the trailing number of each key.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, func(ctx context.Context, env cli.Env) error {
			return cli.List(ctx, env, listCmdFlags)
		})
	},
}

func run(cmd *cobra.Command, fn func(ctx context.Context, env cli.Env) error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	env, closeFn, err := cli.Setup(ctx, envFile)
	if err != nil {
		logger.Log.Error().Err(err).Msg("setup failed")
		os.Exit(1)
	}
	err = fn(ctx, env)
	closeFn()
	if err != nil {
		os.Exit(1)
	}
}

func main() {
	rootCmd.AddCommand(latestCmd, uploadCmd, downloadCmd, deleteCmd, listCmd)

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file with S3SNAP_* settings")

	// ===============
	// latestCmd flags
	// ===============
	for _, c := range []*cobra.Command{rootCmd, latestCmd} {
		c.Flags().StringVarP(&latestCmdFlags.Prefix, "prefix", "p", "", "Only consider keys starting with this prefix")
		c.Flags().Int32VarP(&latestCmdFlags.MaxKeys, "max-keys", "n", 0, "Page size of the single listing call")
	}

	// ============================
	// upload/download/delete flags
	// ============================
	uploadCmd.Flags().StringVarP(&uploadCmdFlags.Bucket, "bucket", "b", "", "Target bucket")
	downloadCmd.Flags().StringVarP(&downloadCmdFlags.Bucket, "bucket", "b", "", "Source bucket")
	deleteCmd.Flags().StringVarP(&deleteCmdFlags.Bucket, "bucket", "b", "", "Bucket to delete from")

	// =============
	// listCmd flags
	// =============
	listCmd.Flags().StringVarP(&listCmdFlags.Bucket, "bucket", "b", "", "Bucket to list")
	listCmd.Flags().StringVarP(&listCmdFlags.Prefix, "prefix", "p", "", "Only list keys starting with this prefix")
	listCmd.Flags().Int32VarP(&listCmdFlags.MaxKeys, "max-keys", "n", 0, "Page size of the listing call")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
