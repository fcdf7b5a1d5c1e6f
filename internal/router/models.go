package router

import "errors"

// Operation is the WAN state change requested from the router.
type Operation string

const (
	Connect    Operation = "connect"
	Disconnect Operation = "disconnect"
)

// WANProto is the connection protocol sent with every WAN state change.
const WANProto = "pppoe"

// validator is implemented by responses with required fields that
// encoding/json cannot enforce on its own.
type validator interface {
	validate() error
}

type loginRequest struct {
	Method string      `json:"method"`
	Login  loginParams `json:"login"`
}

type loginParams struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Stok *string `json:"stok"`
}

func (r *loginResponse) validate() error {
	if r.Stok == nil {
		return errors.New("missing field `stok`")
	}
	return nil
}

type wanStatusRequest struct {
	Method  string           `json:"method"`
	Network wanStatusNetwork `json:"network"`
}

type wanStatusNetwork struct {
	Name []string `json:"name"`
}

type wanStatusResponse struct {
	Network *struct {
		WANStatus *struct {
			IPAddr *string `json:"ipaddr"`
		} `json:"wan_status"`
	} `json:"network"`
}

func (r *wanStatusResponse) validate() error {
	switch {
	case r.Network == nil:
		return errors.New("missing field `network`")
	case r.Network.WANStatus == nil:
		return errors.New("missing field `wan_status`")
	case r.Network.WANStatus.IPAddr == nil:
		return errors.New("missing field `ipaddr`")
	}
	return nil
}

type changeWANRequest struct {
	Method  string           `json:"method"`
	Network changeWANNetwork `json:"network"`
}

type changeWANNetwork struct {
	ChangeWANStatus changeWANStatus `json:"change_wan_status"`
}

type changeWANStatus struct {
	Proto   string    `json:"proto"`
	Operate Operation `json:"operate"`
}
