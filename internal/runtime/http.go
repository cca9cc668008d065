package runtime

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
)

// installHTTPOps wires the fetch client and the embedded HTTP server.
// Requests into JS handlers hop onto the event loop; the accepting
// goroutine blocks on the handler's reply.
func (r *Runtime) installHTTPOps(vm *goja.Runtime, loop *eventloop.EventLoop, ops *goja.Object) {
	client := &http.Client{Timeout: r.settings.HTTPTimeout}

	_ = ops.Set("fetch", func(call goja.FunctionCall) goja.Value {
		rawURL := call.Argument(0).String()
		method := "GET"
		var body io.Reader
		headers := map[string]string{}

		if init := call.Argument(1); !goja.IsUndefined(init) && !goja.IsNull(init) {
			obj := init.ToObject(vm)
			if v := obj.Get("method"); v != nil && !goja.IsUndefined(v) {
				method = strings.ToUpper(v.String())
			}
			if v := obj.Get("body"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
				body = strings.NewReader(v.String())
			}
			if v := obj.Get("headers"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
				headerObj := v.ToObject(vm)
				for _, key := range headerObj.Keys() {
					headers[key] = headerObj.Get(key).String()
				}
			}
		}

		req, err := http.NewRequest(method, rawURL, body)
		if err != nil {
			panic(vm.ToValue(fmt.Sprintf("fetch: %v", err)))
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			panic(vm.ToValue(fmt.Sprintf("fetch: %v", err)))
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			panic(vm.ToValue(fmt.Sprintf("fetch: reading body: %v", err)))
		}

		respHeaders := map[string]string{}
		for k := range resp.Header {
			respHeaders[strings.ToLower(k)] = resp.Header.Get(k)
		}
		finalURL := rawURL
		if resp.Request != nil && resp.Request.URL != nil {
			finalURL = resp.Request.URL.String()
		}
		result := map[string]any{
			"status":     resp.StatusCode,
			"statusText": http.StatusText(resp.StatusCode),
			"headers":    respHeaders,
			"body":       string(respBody),
			"url":        finalURL,
			"redirected": finalURL != rawURL,
			"ok":         resp.StatusCode >= 200 && resp.StatusCode < 300,
		}
		return vm.ToValue(result)
	})

	_ = ops.Set("serve", func(call goja.FunctionCall) goja.Value {
		opts := call.Argument(0).ToObject(vm)
		port := 0
		hostname := "127.0.0.1"
		if v := opts.Get("port"); v != nil && !goja.IsUndefined(v) {
			port = int(v.ToInteger())
		}
		if v := opts.Get("hostname"); v != nil && !goja.IsUndefined(v) {
			hostname = v.String()
		}
		handler, ok := goja.AssertFunction(opts.Get("handler"))
		if !ok {
			panic(vm.ToValue("serve: options.handler must be a function"))
		}

		listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", hostname, port))
		if err != nil {
			panic(vm.ToValue(fmt.Sprintf("serve: %v", err)))
		}
		actualPort := listener.Addr().(*net.TCPAddr).Port

		server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			reqBody, _ := io.ReadAll(req.Body)
			reply := make(chan serveReply, 1)

			loop.RunOnLoop(func(vm *goja.Runtime) {
				headers := map[string]string{}
				for k := range req.Header {
					headers[strings.ToLower(k)] = req.Header.Get(k)
				}
				jsReq := vm.ToValue(map[string]any{
					"method":  req.Method,
					"url":     req.URL.RequestURI(),
					"headers": headers,
					"body":    string(reqBody),
				})
				result, err := handler(goja.Undefined(), jsReq)
				if err != nil {
					reply <- serveReply{status: http.StatusInternalServerError, body: err.Error()}
					return
				}
				resolveResponse(vm, result, reply)
			})

			select {
			case rep := <-reply:
				for k, v := range rep.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(rep.status)
				io.WriteString(w, rep.body)
			case <-time.After(r.settings.HTTPTimeout):
				w.WriteHeader(http.StatusGatewayTimeout)
			}
		})}
		go server.Serve(listener)

		handle := vm.NewObject()
		_ = handle.Set("port", actualPort)
		_ = handle.Set("hostname", hostname)
		_ = handle.Set("stop", func() {
			server.Close()
		})
		return handle
	})
}

type serveReply struct {
	status  int
	body    string
	headers map[string]string
}

// resolveResponse turns a handler's return value (a response object or a
// promise of one) into a reply.
func resolveResponse(vm *goja.Runtime, value goja.Value, reply chan serveReply) {
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		reply <- serveReply{status: 200}
		return
	}
	obj := value.ToObject(vm)

	// promise-shaped: chain through then()
	if then, ok := goja.AssertFunction(obj.Get("then")); ok {
		onFulfilled := vm.ToValue(func(call goja.FunctionCall) goja.Value {
			resolveResponse(vm, call.Argument(0), reply)
			return goja.Undefined()
		})
		onRejected := vm.ToValue(func(call goja.FunctionCall) goja.Value {
			reply <- serveReply{status: http.StatusInternalServerError, body: call.Argument(0).String()}
			return goja.Undefined()
		})
		if _, err := then(value, onFulfilled, onRejected); err != nil {
			reply <- serveReply{status: http.StatusInternalServerError, body: err.Error()}
		}
		return
	}

	rep := serveReply{status: 200, headers: map[string]string{}}
	if v := obj.Get("status"); v != nil && !goja.IsUndefined(v) {
		rep.status = int(v.ToInteger())
	}
	if v := obj.Get("body"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		rep.body = v.String()
	}
	if v := obj.Get("headers"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		headerObj := v.ToObject(vm)
		for _, key := range headerObj.Keys() {
			rep.headers[key] = headerObj.Get(key).String()
		}
	}
	reply <- rep
}
