package timestamp_test

import (
	"context"
	"encoding/asn1"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/timestamp"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func TestClient_Token_Granted(t *testing.T) {
	client := timestamp.NewClient("http://tsa.example.test")
	client.HTTPClient = roundTripFunc(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "application/timestamp-query", r.Header.Get("Content-Type"))
		resp := struct {
			Status struct {
				Status       int
				StatusString []string `asn1:"optional"`
				FailInfo     asn1.BitString `asn1:"optional"`
			}
			TimeStampToken asn1.RawValue `asn1:"optional"`
		}{}
		resp.Status.Status = 0
		resp.TimeStampToken = asn1.RawValue{FullBytes: []byte("fake-token-bytes")}
		body, err := asn1.Marshal(resp)
		require.NoError(t, err)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(string(body))),
		}, nil
	})

	token, err := client.Token(context.Background(), []byte("signature-bytes"))
	require.NoError(t, err)
	require.NotEmpty(t, token)
}

func TestClient_Token_UnreachableIsUnavailable(t *testing.T) {
	client := timestamp.NewClient("http://tsa.example.test")
	client.Timeout = 50 * time.Millisecond
	client.HTTPClient = roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	_, err := client.Token(context.Background(), []byte("signature-bytes"))
	require.ErrorIs(t, err, errdefs.ErrUnavailable)
}

func TestClient_Token_RejectedStatusIsUnavailable(t *testing.T) {
	client := timestamp.NewClient("http://tsa.example.test")
	client.HTTPClient = roundTripFunc(func(*http.Request) (*http.Response, error) {
		resp := struct {
			Status struct {
				Status       int
				StatusString []string       `asn1:"optional"`
				FailInfo     asn1.BitString `asn1:"optional"`
			}
			TimeStampToken asn1.RawValue `asn1:"optional"`
		}{}
		resp.Status.Status = 2 // rejection
		body, err := asn1.Marshal(resp)
		require.NoError(t, err)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(string(body))),
		}, nil
	})

	_, err := client.Token(context.Background(), []byte("signature-bytes"))
	require.ErrorIs(t, err, errdefs.ErrUnavailable)
}
