package net

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/pkg/errors"
)

// ErrorURLNotFound signals a 404 so callers can treat a missing remote
// file differently from a transport failure.
var ErrorURLNotFound = errors.New("URL not found")

// Download fetches a URL into a local file.
func Download(url string, filepath string) (retErr error) {
	if url == "" {
		return errors.New("url is required")
	}

	out, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("closing file: %w", cerr)
		}
	}()

	resp, err := getResp(url)
	if err != nil {
		return errors.Wrapf(err, "error executing HTTP Get request: %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrorURLNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("error downloading file (status: %d - %s): %s", resp.StatusCode, resp.Status, url)
	}

	if _, err = io.Copy(out, resp.Body); err != nil {
		return errors.Wrap(err, "error saving downloaded content to file")
	}

	return nil
}
