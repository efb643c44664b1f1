package repository

import (
	"encoding/json"
	"fmt"

	"github.com/steelcrab/polytunnel/src/coordinate"
)

// searchResponse is the subset of Maven Central's /solrsearch/select response
// shape we care about. Search is optional (spec §4.2) and used only by the
// out-of-core `add` command; we keep just enough here to satisfy the Client
// contract without pulling in a full Central Search API client.
type searchResponse struct {
	Response struct {
		Docs []struct {
			GroupID    string `json:"g"`
			ArtifactID string `json:"a"`
			Version    string `json:"latestVersion"`
		} `json:"docs"`
	} `json:"response"`
}

func parseSearchResults(body []byte) ([]coordinate.Coordinate, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	out := make([]coordinate.Coordinate, 0, len(resp.Response.Docs))
	for _, d := range resp.Response.Docs {
		out = append(out, coordinate.Coordinate{
			GroupArtifact: coordinate.GroupArtifact{Group: d.GroupID, Artifact: d.ArtifactID},
			Version:       coordinate.Version(d.Version),
		})
	}
	return out, nil
}
