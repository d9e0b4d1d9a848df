package main

import (
	"fmt"
	"os"

	"github.com/bobmcallan/doc-mcp-server/internal/apifox"
	"github.com/bobmcallan/doc-mcp-server/internal/app"
	"github.com/bobmcallan/doc-mcp-server/internal/common"
	"github.com/bobmcallan/doc-mcp-server/internal/tools"
	"github.com/spf13/cobra"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a Swagger document to ApiFox",
		Long: "Reads a Swagger JSON file and imports it into an ApiFox project through the " +
			"same tool that MCP clients call. Project ID and access token fall back to " +
			"apifox.project_id and apifox.access_token from the configuration.",
		Args: cobra.NoArgs,
		RunE: runUpload,
	}

	cmd.Flags().StringP("file", "f", "", "Path to the Swagger JSON document (required)")
	cmd.Flags().String("project-id", "", "ApiFox project ID")
	cmd.Flags().String("access-token", "", "ApiFox access token")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runUpload(cmd *cobra.Command, _ []string) error {
	file, _ := cmd.Flags().GetString("file")
	projectID, _ := cmd.Flags().GetString("project-id")
	accessToken, _ := cmd.Flags().GetString("access-token")

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := checkConfig(cmd.ErrOrStderr(), cfg); err != nil {
		return err
	}
	if projectID == "" {
		projectID = cfg.APIFox.ProjectID
	}
	if accessToken == "" {
		accessToken = cfg.APIFox.AccessToken
	}

	doc, err := os.ReadFile(file)
	if err != nil {
		return exitError(1, "failed to read %s: %v", file, err)
	}

	logger := common.NewLoggerFromConfig(cfg.Logging, cmd.ErrOrStderr())
	application, err := app.New(cfg, logger)
	if err != nil {
		return exitError(1, "failed to initialize application: %v", err)
	}

	res := application.Dispatcher.Dispatch(commandContext(cmd), tools.Call{
		Name: apifox.ToolName,
		Arguments: tools.Arguments{
			apifox.ArgProjectID:   projectID,
			apifox.ArgAccessToken: accessToken,
			apifox.ArgSwaggerJSON: string(doc),
		},
	})
	if !res.OK() {
		return exitError(1, "upload failed (%s): %s", res.Kind(), res.Failure.Message)
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Payload)
	return nil
}
