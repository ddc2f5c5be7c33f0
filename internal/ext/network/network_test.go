package network

import (
	"net/http/httptest"
	"testing"

	"haxby/internal/builtins"
	"haxby/internal/shape"
	"haxby/internal/symbol"
	"haxby/internal/value"
)

type fakeHost struct {
	syms *symbol.Interner
	reg  *shape.Registry
	b    *builtins.Catalogue
}

func (h *fakeHost) Interner() *symbol.Interner    { return h.syms }
func (h *fakeHost) Shapes() *shape.Registry       { return h.reg }
func (h *fakeHost) Builtins() *builtins.Catalogue { return h.b }

func newFakeHost() *fakeHost {
	syms := symbol.New()
	reg := shape.NewRegistry()
	return &fakeHost{syms: syms, reg: reg, b: builtins.New(syms, reg)}
}

func TestInjectBindsHttpAndWebSocketClient(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")

	if result := Inject(host, mod); result.Err != nil {
		t.Fatalf("inject: %v", result.Err)
	}

	httpSym, _ := host.Interner().Intern("Http")
	if _, ok := mod.Get(httpSym); !ok {
		t.Fatalf("expected Http to be bound")
	}
	wsSym, _ := host.Interner().Intern("WebSocketClient")
	if _, ok := mod.Get(wsSym); !ok {
		t.Fatalf("expected WebSocketClient to be bound")
	}
	wsServerSym, _ := host.Interner().Intern("WebSocketServer")
	if _, ok := mod.Get(wsServerSym); !ok {
		t.Fatalf("expected WebSocketServer to be bound")
	}
}

func TestHttpGetRoundTrip(t *testing.T) {
	server := httptest.NewServer(nil)
	defer server.Close()

	host := newFakeHost()
	mod := value.NewModule("test", "test-id")
	Inject(host, mod)

	httpSym, _ := host.Interner().Intern("Http")
	httpTypeVal, _ := mod.Get(httpSym)
	httpType := httpTypeVal.(*value.TypeValue)

	getSym, _ := host.Interner().Intern("get")
	getFn, _ := httpType.Struct.Members.Get(getSym)
	result, thrown, err := getFn.(*value.NativeFunction).Invoke(httpType, []value.Value{value.Str(server.URL)})
	if err != nil || thrown != nil {
		t.Fatalf("get: thrown=%v err=%v", thrown, err)
	}
	resp, ok := result.(*value.Object)
	if !ok {
		t.Fatalf("expected an HttpResponse object, got %T", result)
	}
	statusSym, _ := host.Interner().Intern("status")
	status, ok := resp.Attrs.Get(statusSym)
	if !ok {
		t.Fatalf("expected a status attribute")
	}
	if _, ok := status.(value.Int); !ok {
		t.Fatalf("expected status to be an Int, got %T", status)
	}
}

func TestWebSocketClientRecvAfterCloseIsCatchable(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")
	Inject(host, mod)

	wsSym, _ := host.Interner().Intern("WebSocketClient")
	wsTypeVal, _ := mod.Get(wsSym)
	wsType := wsTypeVal.(*value.TypeValue)
	obj := &value.Object{Struct: wsType.Struct, Attrs: value.Box{Shape: host.Shapes().Empty()}}

	recvSym, _ := host.Interner().Intern("recv")
	recvFn, _ := wsType.Struct.Members.Get(recvSym)
	_, thrown, err := recvFn.(*value.NativeFunction).Invoke(obj, nil)
	if err != nil {
		t.Fatalf("unexpected hard error: %v", err)
	}
	ev, ok := thrown.(*value.EnumValue)
	if !ok || ev.CaseName() != "OperationFailed" {
		t.Fatalf("expected a catchable OperationFailed, got %v", thrown)
	}
}

func TestWebSocketServerAcceptAndBroadcastRoundTrip(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")
	Inject(host, mod)

	wsServerSym, _ := host.Interner().Intern("WebSocketServer")
	wsServerTypeVal, _ := mod.Get(wsServerSym)
	wsServerType := wsServerTypeVal.(*value.TypeValue)
	wsSym, _ := host.Interner().Intern("WebSocketClient")
	wsTypeVal, _ := mod.Get(wsSym)
	wsType := wsTypeVal.(*value.TypeValue)

	listenSym, _ := host.Interner().Intern("listen")
	listenFn, _ := wsServerType.Struct.Members.Get(listenSym)
	server, thrown, err := listenFn.(*value.NativeFunction).Invoke(wsServerType, []value.Value{value.Str("127.0.0.1:18099")})
	if err != nil || thrown != nil {
		t.Fatalf("listen: thrown=%v err=%v", thrown, err)
	}
	serverObj := server.(*value.Object)

	connectSym, _ := host.Interner().Intern("connect")
	connectFn, _ := wsType.Struct.Members.Get(connectSym)
	client, thrown, err := connectFn.(*value.NativeFunction).Invoke(wsType, []value.Value{value.Str("ws://127.0.0.1:18099/")})
	if err != nil || thrown != nil {
		t.Fatalf("connect: thrown=%v err=%v", thrown, err)
	}
	clientObj := client.(*value.Object)

	acceptSym, _ := host.Interner().Intern("accept")
	acceptFn, _ := wsServerType.Struct.Members.Get(acceptSym)
	accepted, thrown, err := acceptFn.(*value.NativeFunction).Invoke(serverObj, nil)
	if err != nil || thrown != nil {
		t.Fatalf("accept: thrown=%v err=%v", thrown, err)
	}
	acceptedObj := accepted.(*value.Object)
	if acceptedObj.Struct != wsType.Struct {
		t.Fatalf("expected accepted connection to share WebSocketClient's shape")
	}

	broadcastSym, _ := host.Interner().Intern("broadcast")
	broadcastFn, _ := wsServerType.Struct.Members.Get(broadcastSym)
	if _, thrown, err := broadcastFn.(*value.NativeFunction).Invoke(serverObj, []value.Value{value.Str("hi")}); err != nil || thrown != nil {
		t.Fatalf("broadcast: thrown=%v err=%v", thrown, err)
	}

	recvSym, _ := host.Interner().Intern("recv")
	recvFn, _ := wsType.Struct.Members.Get(recvSym)
	msg, thrown, err := recvFn.(*value.NativeFunction).Invoke(clientObj, nil)
	if err != nil || thrown != nil {
		t.Fatalf("recv: thrown=%v err=%v", thrown, err)
	}
	if msg.(value.Str) != "hi" {
		t.Fatalf("expected broadcast message 'hi', got %v", msg)
	}

	closeSym, _ := host.Interner().Intern("close")
	closeFn, _ := wsServerType.Struct.Members.Get(closeSym)
	closeFn.(*value.NativeFunction).Invoke(serverObj, nil)
}
