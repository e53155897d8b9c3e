package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type executeRunRequest struct {
	ProcessorID string `json:"processor_id"`
	DocumentID  string `json:"document_id"`
}

type executeRunResponse struct {
	RunID string `json:"run_id"`
}

// ExecuteProcessorRun invokes the execute-processor-run edge function for
// the given processor and document. The function queues an asynchronous
// run and answers 202 Accepted with the new run id; any other status is a
// failure. The call is bounded by the client's function timeout.
func (c *Client) ExecuteProcessorRun(ctx context.Context, processorID, documentID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.functionTimeout)
	defer cancel()

	payload, err := json.Marshal(executeRunRequest{ProcessorID: processorID, DocumentID: documentID})
	if err != nil {
		return "", fmt.Errorf("marshalling function payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/functions/v1/execute-processor-run", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating function request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceRoleKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("invoking execute-processor-run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", unexpectedStatus(resp)
	}

	var result executeRunResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding function response: %w", err)
	}
	if result.RunID == "" {
		return "", fmt.Errorf("function response missing run_id")
	}
	return result.RunID, nil
}
