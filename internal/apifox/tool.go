package apifox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/bobmcallan/doc-mcp-server/internal/common"
	"github.com/bobmcallan/doc-mcp-server/internal/tools"
)

// ToolName is the registered name of the upload tool.
const ToolName = "uploadSwaggerToApiFox"

// Argument names of the upload tool.
const (
	ArgProjectID   = "projectId"
	ArgAccessToken = "accessToken"
	ArgSwaggerJSON = "swaggerJson"
)

// Uploader is the outbound side of the upload tool.
type Uploader interface {
	Upload(ctx context.Context, projectID, accessToken, document string) (json.RawMessage, error)
}

// UploadTool builds the uploadSwaggerToApiFox tool over an Uploader.
func UploadTool(u Uploader, logger *common.Logger) tools.Tool {
	return tools.Tool{
		Definition: tools.Definition{
			Name: ToolName,
			Description: "Upload a Swagger JSON document to ApiFox. Parameters: projectId (ApiFox project ID, required), " +
				"accessToken (ApiFox access token, required), swaggerJson (the complete Swagger JSON string, required). " +
				"Call getSwaggerSpecification first to see the expected format.",
			Schema: tools.Schema{Properties: []tools.Property{
				{Name: ArgProjectID, Type: tools.TypeString, Description: "ApiFox project ID", Required: true},
				{Name: ArgAccessToken, Type: tools.TypeString, Description: "ApiFox access token", Required: true},
				{Name: ArgSwaggerJSON, Type: tools.TypeString, Description: "Complete Swagger JSON string", Required: true},
			}},
		},
		Handler: func(ctx context.Context, args tools.Arguments) (string, error) {
			projectID := args.String(ArgProjectID)
			logger.Debug().
				Str("project_id", projectID).
				Int("swagger_bytes", len(args.String(ArgSwaggerJSON))).
				Msg("upload tool invoked")

			result, err := u.Upload(ctx, projectID, args.String(ArgAccessToken), args.String(ArgSwaggerJSON))
			if err != nil {
				return "", err
			}
			return formatSuccess(projectID, result), nil
		},
	}
}

func formatSuccess(projectID string, result json.RawMessage) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(result)
	}
	return fmt.Sprintf("Successfully uploaded Swagger document to ApiFox!\nProject ID: %s\nResult: %s", projectID, pretty.String())
}
