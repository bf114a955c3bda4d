package httputil

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON marshals v as the response body. A value that cannot be marshalled
// becomes a 500 with the standard error body.
func JSON(ctx *fasthttp.RequestCtx, v interface{}, statusCode int) {
	body, err := json.Marshal(v)
	if err != nil {
		body, _ = json.Marshal(ErrorResponse{Error: "internal error"})
		statusCode = fasthttp.StatusInternalServerError
	}
	ctx.SetStatusCode(statusCode)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// JSONError writes {"error": message}
func JSONError(ctx *fasthttp.RequestCtx, message string, statusCode int) {
	JSON(ctx, ErrorResponse{Error: message}, statusCode)
}

// JSONData writes v with 200 OK
func JSONData(ctx *fasthttp.RequestCtx, v interface{}) {
	JSON(ctx, v, fasthttp.StatusOK)
}
