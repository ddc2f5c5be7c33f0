// Package network is a native extension (spec.md §6.3) grounded on the
// teacher's internal/network/http_client.go, websocket.go, and
// websocket_server.go: an Http struct over net/http, and a
// WebSocketClient/WebSocketServer pair over github.com/gorilla/websocket.
package network

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"haxby/internal/builtins"
	"haxby/internal/dylib"
	"haxby/internal/shape"
	"haxby/internal/symbol"
	"haxby/internal/value"
)

const wsConnAttr = "__ws"

// Inject binds "Http" (a stateless struct exposing get/post/put/delete),
// "WebSocketClient" (connect/send/recv/close), and "WebSocketServer"
// (listen/accept/broadcast/close) into mod.
func Inject(host dylib.Host, mod *value.Module) dylib.LoadResult {
	reg := host.Shapes()
	syms := host.Interner()
	b := host.Builtins()

	connSym, ierr := syms.Intern(wsConnAttr)
	if ierr != nil {
		return dylib.Fail("network: %v", ierr)
	}

	httpType, err := buildHTTPType(syms, reg, b)
	if err != nil {
		return dylib.Fail("network: %v", err)
	}
	wsType, err := buildWebSocketClientType(syms, reg, b, connSym)
	if err != nil {
		return dylib.Fail("network: %v", err)
	}
	wsServerType, err := buildWebSocketServerType(syms, reg, b, wsType.Struct, connSym)
	if err != nil {
		return dylib.Fail("network: %v", err)
	}

	httpSym, ierr := syms.Intern("Http")
	if ierr != nil {
		return dylib.Fail("network: %v", ierr)
	}
	wsSym, ierr := syms.Intern("WebSocketClient")
	if ierr != nil {
		return dylib.Fail("network: %v", ierr)
	}
	wsServerSym, ierr := syms.Intern("WebSocketServer")
	if ierr != nil {
		return dylib.Fail("network: %v", ierr)
	}
	if aerr := mod.Assign(httpSym, httpType); aerr != nil {
		return dylib.Fail("network: %v", aerr)
	}
	if aerr := mod.Assign(wsSym, wsType); aerr != nil {
		return dylib.Fail("network: %v", aerr)
	}
	if aerr := mod.Assign(wsServerSym, wsServerType); aerr != nil {
		return dylib.Fail("network: %v", aerr)
	}
	return dylib.Ok()
}

// buildHTTPType builds a stateless Http struct with get/post/put/delete
// class-level methods (no receiver state), grounded on HTTPGet/HTTPPost in
// the teacher's http_client.go.
func buildHTTPType(syms *symbol.Interner, reg *shape.Registry, b *builtins.Catalogue) (*value.TypeValue, error) {
	st := &value.Struct{Name: "Http", Members: value.Box{Shape: reg.Empty()}}

	request := func(method string) *value.NativeFunction {
		return &value.NativeFunction{
			Name:         "Http." + method,
			RequiredArgc: 1,
			DefaultArgc:  1,
			Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
				url, ok := args[0].(value.Str)
				if !ok {
					return nil, b.NewRuntimeError("UnexpectedType", nil), nil
				}
				var body io.Reader
				if len(args) > 1 {
					bodyStr, ok := args[1].(value.Str)
					if !ok {
						return nil, b.NewRuntimeError("UnexpectedType", nil), nil
					}
					body = bytes.NewBufferString(string(bodyStr))
				}
				req, rerr := http.NewRequest(method, string(url), body)
				if rerr != nil {
					return nil, b.NewRuntimeError("OperationFailed", value.Str(rerr.Error())), nil
				}
				client := &http.Client{Timeout: 30 * time.Second}
				resp, derr := client.Do(req)
				if derr != nil {
					return nil, b.NewRuntimeError("OperationFailed", value.Str(derr.Error())), nil
				}
				defer resp.Body.Close()
				respBody, rerr := io.ReadAll(resp.Body)
				if rerr != nil {
					return nil, b.NewRuntimeError("OperationFailed", value.Str(rerr.Error())), nil
				}
				result := &value.Object{Struct: httpResponseStruct, Attrs: value.Box{Shape: reg.Empty()}}
				result.Attrs.Set(reg, mustSym(syms, "status"), value.Int(resp.StatusCode))
				result.Attrs.Set(reg, mustSym(syms, "body"), value.Str(string(respBody)))
				return result, nil, nil
			},
		}
	}

	st.Members.Set(reg, mustSym(syms, "get"), request(http.MethodGet))
	st.Members.Set(reg, mustSym(syms, "post"), request(http.MethodPost))
	st.Members.Set(reg, mustSym(syms, "put"), request(http.MethodPut))
	st.Members.Set(reg, mustSym(syms, "delete"), request(http.MethodDelete))

	return &value.TypeValue{TVKind: value.TVStruct, Struct: st, Name: "Http"}, nil
}

// httpResponseStruct backs the result of every Http method: a plain
// {status, body} record, identity-equal across calls the way every other
// built-in struct type is.
var httpResponseStruct = &value.Struct{Name: "HttpResponse"}

// wrapConn boxes a live *websocket.Conn as an instance of st, the shape
// shared by both client-dialed and server-accepted connections so send/recv/
// close work identically regardless of which side opened the socket.
func wrapConn(reg *shape.Registry, connSym symbol.Symbol, st *value.Struct, conn *websocket.Conn) *value.Object {
	obj := &value.Object{Struct: st, Attrs: value.Box{Shape: reg.Empty()}}
	obj.Attrs.Set(reg, connSym, &value.Opaque{TypeName: "websocket.Conn", Payload: conn})
	return obj
}

// buildWebSocketClientType builds a WebSocketClient struct with
// connect/send/recv/close bound methods over a live *websocket.Conn stashed
// in the instance's attribute box, grounded on WebSocketConnect/Send/Close
// in the teacher's websocket.go.
func buildWebSocketClientType(syms *symbol.Interner, reg *shape.Registry, b *builtins.Catalogue, connSym symbol.Symbol) (*value.TypeValue, error) {
	st := &value.Struct{Name: "WebSocketClient", Members: value.Box{Shape: reg.Empty()}}

	connOf := func(obj *value.Object) (*websocket.Conn, value.Value) {
		raw, ok := obj.Attrs.Get(connSym)
		if !ok {
			return nil, b.NewRuntimeError("OperationFailed", value.Str("connection is closed"))
		}
		op := raw.(*value.Opaque)
		return op.Payload.(*websocket.Conn), nil
	}

	st.Members.Set(reg, mustSym(syms, "send"), &value.NativeFunction{
		Name: "WebSocketClient.send", RequiredArgc: 1,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			obj := recv.(*value.Object)
			conn, thrown := connOf(obj)
			if thrown != nil {
				return nil, thrown, nil
			}
			msg, ok := args[0].(value.Str)
			if !ok {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			if werr := conn.WriteMessage(websocket.TextMessage, []byte(msg)); werr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(werr.Error())), nil
			}
			return b.UnitValue, nil, nil
		},
	})

	st.Members.Set(reg, mustSym(syms, "recv"), &value.NativeFunction{
		Name: "WebSocketClient.recv",
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			obj := recv.(*value.Object)
			conn, thrown := connOf(obj)
			if thrown != nil {
				return nil, thrown, nil
			}
			_, msg, rerr := conn.ReadMessage()
			if rerr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(rerr.Error())), nil
			}
			return value.Str(string(msg)), nil, nil
		},
	})

	st.Members.Set(reg, mustSym(syms, "close"), &value.NativeFunction{
		Name: "WebSocketClient.close",
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			obj := recv.(*value.Object)
			conn, thrown := connOf(obj)
			if thrown != nil {
				return b.UnitValue, nil, nil
			}
			conn.Close()
			return b.UnitValue, nil, nil
		},
	})

	connectFn := &value.NativeFunction{
		Name: "WebSocketClient.connect", RequiredArgc: 1,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			url, ok := args[0].(value.Str)
			if !ok {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			dialer := websocket.DefaultDialer
			dialer.HandshakeTimeout = 10 * time.Second
			conn, _, derr := dialer.Dial(string(url), nil)
			if derr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(derr.Error())), nil
			}
			return wrapConn(reg, connSym, st, conn), nil, nil
		},
	}
	st.Members.Set(reg, mustSym(syms, "connect"), connectFn)

	return &value.TypeValue{TVKind: value.TVStruct, Struct: st, Name: "WebSocketClient"}, nil
}

// wsServerState is the live handle stashed behind a WebSocketServer
// instance: an http.Server running a gorilla upgrader, a channel feeding
// newly accepted connections, and the set of connections broadcast reaches,
// grounded on the teacher's WSServers/WebSocketAccept/WebSocketBroadcast in
// websocket_server.go.
type wsServerState struct {
	httpServer *http.Server
	accept     chan *websocket.Conn

	mu      sync.Mutex
	clients []*websocket.Conn
}

// buildWebSocketServerType builds a WebSocketServer struct with
// listen/accept/broadcast/close bound methods, grounded on
// WebSocketAccept/WebSocketBroadcast/WebSocketGetClients in the teacher's
// websocket_server.go. Accepted connections come back as instances of
// clientStruct so send/recv/close work the same regardless of which side
// dialed.
func buildWebSocketServerType(syms *symbol.Interner, reg *shape.Registry, b *builtins.Catalogue, clientStruct *value.Struct, connSym symbol.Symbol) (*value.TypeValue, error) {
	stateSym, err := syms.Intern("__wsserver")
	if err != nil {
		return nil, err
	}
	st := &value.Struct{Name: "WebSocketServer", Members: value.Box{Shape: reg.Empty()}}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	stateOf := func(obj *value.Object) (*wsServerState, value.Value) {
		raw, ok := obj.Attrs.Get(stateSym)
		if !ok {
			return nil, b.NewRuntimeError("OperationFailed", value.Str("server is closed"))
		}
		op := raw.(*value.Opaque)
		return op.Payload.(*wsServerState), nil
	}

	listenFn := &value.NativeFunction{
		Name: "WebSocketServer.listen", RequiredArgc: 1,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			addr, ok := args[0].(value.Str)
			if !ok {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			state := &wsServerState{accept: make(chan *websocket.Conn, 16)}
			mux := http.NewServeMux()
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				conn, uerr := upgrader.Upgrade(w, r, nil)
				if uerr != nil {
					return
				}
				state.mu.Lock()
				state.clients = append(state.clients, conn)
				state.mu.Unlock()
				state.accept <- conn
			})
			state.httpServer = &http.Server{Addr: string(addr), Handler: mux}

			ready := make(chan error, 1)
			go func() {
				ln, lerr := net.Listen("tcp", state.httpServer.Addr)
				if lerr != nil {
					ready <- lerr
					return
				}
				ready <- nil
				_ = state.httpServer.Serve(ln)
			}()
			if lerr := <-ready; lerr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(lerr.Error())), nil
			}

			obj := &value.Object{Struct: st, Attrs: value.Box{Shape: reg.Empty()}}
			obj.Attrs.Set(reg, stateSym, &value.Opaque{TypeName: "wsServerState", Payload: state})
			return obj, nil, nil
		},
	}
	st.Members.Set(reg, mustSym(syms, "listen"), listenFn)

	st.Members.Set(reg, mustSym(syms, "accept"), &value.NativeFunction{
		Name: "WebSocketServer.accept",
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			obj := recv.(*value.Object)
			state, thrown := stateOf(obj)
			if thrown != nil {
				return nil, thrown, nil
			}
			conn, ok := <-state.accept
			if !ok {
				return nil, b.NewRuntimeError("OperationFailed", value.Str("server is closed")), nil
			}
			return wrapConn(reg, connSym, clientStruct, conn), nil, nil
		},
	})

	st.Members.Set(reg, mustSym(syms, "broadcast"), &value.NativeFunction{
		Name: "WebSocketServer.broadcast", RequiredArgc: 1,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			obj := recv.(*value.Object)
			state, thrown := stateOf(obj)
			if thrown != nil {
				return nil, thrown, nil
			}
			msg, ok := args[0].(value.Str)
			if !ok {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			state.mu.Lock()
			clients := append([]*websocket.Conn(nil), state.clients...)
			state.mu.Unlock()
			for _, c := range clients {
				_ = c.WriteMessage(websocket.TextMessage, []byte(msg))
			}
			return b.UnitValue, nil, nil
		},
	})

	st.Members.Set(reg, mustSym(syms, "close"), &value.NativeFunction{
		Name: "WebSocketServer.close",
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			obj := recv.(*value.Object)
			state, thrown := stateOf(obj)
			if thrown != nil {
				return b.UnitValue, nil, nil
			}
			state.httpServer.Close()
			return b.UnitValue, nil, nil
		},
	})

	return &value.TypeValue{TVKind: value.TVStruct, Struct: st, Name: "WebSocketServer"}, nil
}

func mustSym(syms *symbol.Interner, name string) symbol.Symbol {
	s, err := syms.Intern(name)
	if err != nil {
		panic(err)
	}
	return s
}
