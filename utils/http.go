package utils

import "github.com/valyala/fasthttp"

func WriteJSON(ctx *fasthttp.RequestCtx, status int, body []byte) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")

	ctx.Response.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	ctx.Response.Header.Set("Pragma", "no-cache")
	ctx.Response.Header.Set("Expires", "0")

	if requestID := ctx.Request.Header.Peek("X-Request-ID"); len(requestID) > 0 {
		ctx.Response.Header.SetBytesV("X-Request-ID", requestID)
	}

	ctx.SetBody(body)
}

func CreateErrorResponse(ctx *fasthttp.RequestCtx, status int, code string) {
	WriteJSON(ctx, status, []byte(`{"error":"`+code+`"}`))
}
