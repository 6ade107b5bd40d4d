package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const categoriesURI = "expense://categories"

func registerResources(server *sdk.Server, svc Services) {
	server.AddResource(&sdk.Resource{
		URI:         categoriesURI,
		Name:        "categories",
		Description: "Valid expense categories and their subcategories",
		MIMEType:    "application/json",
	}, categoriesHandler(svc.Taxonomy))
}

func categoriesHandler(tax Categories) sdk.ResourceHandler {
	return func(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
		data, err := tax.JSON()
		if err != nil {
			return nil, fmt.Errorf("marshal categories: %w", err)
		}
		return &sdk.ReadResourceResult{
			Contents: []*sdk.ResourceContents{
				{
					URI:      categoriesURI,
					MIMEType: "application/json",
					Text:     string(data),
				},
			},
		}, nil
	}
}
