package middleware

import (
	"net/http"
	"net/http/httptest"

	"github.com/Suhaibinator/SDispatch/pkg/common"
)

// invoke runs a single field middleware against req with no prior fields.
func invoke(m common.Middleware, req *http.Request) (*httptest.ResponseRecorder, common.Fields, error) {
	return invokeWith(m, req, common.Fields{})
}

func invokeWith(m common.Middleware, req *http.Request, fields common.Fields) (*httptest.ResponseRecorder, common.Fields, error) {
	rr := httptest.NewRecorder()
	out, err := m(rr, req, fields)
	return rr, out, err
}

func statusOf(err error) int {
	if httpErr, ok := common.AsHTTPError(err); ok {
		return httpErr.StatusCode
	}
	return 0
}
