// Package router is a client for the router's session-token JSON API.
//
// The router exposes a single POST endpoint. Login is sent to the base URL
// and returns a session token ("stok"); every other call is sent to
// /stok=<token>/ds:
//
//	login:       {"method":"do","login":{"password":"..."}}        -> {"stok":"..."}
//	wan status:  {"method":"get","network":{"name":["wan_status"]}} -> {"network":{"wan_status":{"ipaddr":"..."}}}
//	toggle WAN:  {"method":"do","network":{"change_wan_status":{"proto":"pppoe","operate":"connect"}}}
//
// # Usage Example
//
//	client := router.NewClient("http://192.168.0.1/")
//	stok, err := client.Login(ctx, password)
//	if err != nil {
//	    return router.Message(err)
//	}
//	ip, err := client.WANIP(ctx, stok)
//
// # Errors
//
// Every failure is a *RouterError tagged with a Kind (transport, status or
// decode). The kind feeds logs and metrics; callers that report results to
// users flatten it with Message, so "router unreachable", "bad password" and
// "malformed response" all surface as plain text.
//
// The client holds no session: tokens are not cached and each operation
// sequence logs in again.
package router
