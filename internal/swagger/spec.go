// Package swagger serves the reference Swagger 2.0 document that callers use
// as a template before uploading their own API description.
package swagger

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/bobmcallan/doc-mcp-server/internal/common"
	"github.com/bobmcallan/doc-mcp-server/internal/tools"
)

// ToolName is the registered name of the specification tool.
const ToolName = "getSwaggerSpecification"

//go:embed petstore-swagger.json
var petstore []byte

// Reader supplies the raw reference document.
type Reader interface {
	Read() ([]byte, error)
}

// Source reads the reference document from disk when a path is configured,
// otherwise from the embedded Petstore example.
type Source struct {
	path string
}

// NewSource returns a Source. A non-empty path must name an existing regular
// file; it is re-read on every call so edits take effect without a restart.
func NewSource(path string) (*Source, error) {
	if path == "" {
		return &Source{}, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("swagger spec path: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("swagger spec path %s is a directory", path)
	}
	return &Source{path: path}, nil
}

// Origin names where the document comes from, for logging.
func (s *Source) Origin() string {
	if s.path == "" {
		return "embedded"
	}
	return s.path
}

func (s *Source) Read() ([]byte, error) {
	if s.path == "" {
		return petstore, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read swagger spec: %w", err)
	}
	return data, nil
}

// SpecificationTool builds the zero-argument tool returning the reference
// document wrapped in usage guidance.
func SpecificationTool(r Reader, logger *common.Logger) tools.Tool {
	return tools.Tool{
		Definition: tools.Definition{
			Name: ToolName,
			Description: "Get a Swagger parameter specification example. Returns a standard Swagger 2.0 JSON document " +
				"based on the Petstore sample. Use it to learn the expected structure, then write your own API " +
				"document in the same format and upload it with the uploadSwaggerToApiFox tool.",
			ReadOnly: true,
		},
		Handler: func(ctx context.Context, args tools.Arguments) (string, error) {
			doc, err := r.Read()
			if err != nil {
				return "", tools.NewInternalError(err, "failed to load swagger specification: %v", err)
			}
			logger.Debug().Int("bytes", len(doc)).Msg("swagger specification loaded")
			return Render(doc), nil
		},
	}
}

// Render wraps a Swagger document in the guidance text returned to callers.
func Render(doc []byte) string {
	return fmt.Sprintf(specTemplate, doc)
}

const specTemplate = `Swagger specification example (based on Petstore):

This is a complete Swagger 2.0 JSON example. Its main sections are:

1. **Basic information (info)**:
   - title: API title
   - version: API version
   - description: API description
   - contact: contact information
   - license: license information

2. **Server information**:
   - host: host address
   - basePath: base path
   - schemes: supported protocols

3. **Tags (tags)**: API grouping tags

4. **Paths (paths)**: the concrete API endpoint definitions

5. **Security definitions (securityDefinitions)**: authentication methods

6. **Data models (definitions)**: request and response data structures

Full Swagger JSON:
%s

Usage:
- Use this format as the template for your own API document
- Change the basic information in the info section
- Define your API paths and methods
- Create the matching data models
- Then upload the document to ApiFox with the uploadSwaggerToApiFox tool

Important notes:
1. **Accurate paths**:
   - Read the code and the project's routing configuration carefully
   - Derive paths from the real controller paths and route mappings
   - Make sure paths match the deployed API

2. **Complete parameters and responses**:
   - Read the handler code and produce complete parameter definitions
   - Identify the real return type; if responses use a wrapper type, model the wrapper
   - Include every required and optional parameter with the correct data type
   - Make response models match the data actually returned
   - Leave out boilerplate parameters such as permission flags or shared token parameters

3. **Random model names**:
   - Give generated request and response models random names
   - Identical model names would overwrite the models of other endpoints
   - Prefer project name + endpoint name + random suffix
   - For example: UserLoginRequest_abc123, ProductListResponse_xyz789

4. **Endpoint folder names**:
   - Use the controller's description or doc comment as the folder name when available
   - Otherwise use the controller type name as the folder name`
