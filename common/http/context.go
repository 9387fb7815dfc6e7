package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Context narrows gin.Context to what handlers actually need, so the api
// packages never import gin directly.
type Context struct {
	ginCtx *gin.Context
}

func newContext(c *gin.Context) *Context {
	return &Context{ginCtx: c}
}

func (c *Context) GetParam(key string) string {
	return c.ginCtx.Param(key)
}

func (c *Context) GetQuery(key string) string {
	return c.ginCtx.Query(key)
}

func (c *Context) GetQueryWithDefault(key, defaultValue string) string {
	return c.ginCtx.DefaultQuery(key, defaultValue)
}

func (c *Context) GetHeader(key string) string {
	return c.ginCtx.GetHeader(key)
}

func (c *Context) BindJSON(obj interface{}) error {
	return c.ginCtx.ShouldBindJSON(obj)
}

func (c *Context) BindQuery(obj interface{}) error {
	return c.ginCtx.ShouldBindQuery(obj)
}

func (c *Context) JSON(code int, obj interface{}) {
	c.ginCtx.JSON(code, obj)
}

func (c *Context) SetHeader(key, value string) {
	c.ginCtx.Header(key, value)
}

func (c *Context) ClientIP() string {
	return c.ginCtx.ClientIP()
}

func (c *Context) UserAgent() string {
	return c.ginCtx.GetHeader("User-Agent")
}

func (c *Context) Method() string {
	return c.ginCtx.Request.Method
}

func (c *Context) Path() string {
	return c.ginCtx.Request.URL.Path
}

// Set stores a request-scoped value, typically by middleware for handlers
// downstream.
func (c *Context) Set(key string, value interface{}) {
	c.ginCtx.Set(key, value)
}

func (c *Context) Get(key string) (interface{}, bool) {
	return c.ginCtx.Get(key)
}

func (c *Context) GetString(key string) string {
	return c.ginCtx.GetString(key)
}

// Abort stops the handler chain. The current middleware still runs to
// completion.
func (c *Context) Abort() {
	c.ginCtx.Abort()
}

func (c *Context) AbortWithStatus(code int) {
	c.ginCtx.AbortWithStatus(code)
}

func (c *Context) IsAborted() bool {
	return c.ginCtx.IsAborted()
}

func (c *Context) Status(code int) {
	c.ginCtx.Status(code)
}

// Request exposes the raw request for code that needs the context deadline
// or body stream.
func (c *Context) Request() *http.Request {
	return c.ginCtx.Request
}
