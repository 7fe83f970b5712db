/*
Copyright 2026 Tally Ledger Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/tallyledger/tally"
	"github.com/tallyledger/tally/config"
	"github.com/tallyledger/tally/database/mocks"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	if s.Response != nil {
		err := json.NewDecoder(resp.Body).Decode(&s.Response)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func toJSONReq(payload interface{}) io.Reader {
	body, _ := json.Marshal(payload)
	return bytes.NewReader(body)
}

func setupOrdersRouter() (*gin.Engine, *mocks.MockOrderSource) {
	config.MockConfig(&config.Configuration{
		Broker: config.BrokerConfig{
			RequestQueue: "purchase_queue",
			StatusQueue:  "purchase_status_queue",
		},
	})
	ds := new(mocks.MockOrderSource)
	router := NewOrdersAPI(tally.NewOrders(ds)).Router()
	return router, ds
}

func setupPaymentsRouter() (*gin.Engine, *mocks.MockPaymentSource) {
	config.MockConfig(&config.Configuration{
		Broker: config.BrokerConfig{
			RequestQueue: "purchase_queue",
			StatusQueue:  "purchase_status_queue",
		},
	})
	ds := new(mocks.MockPaymentSource)
	router := NewPaymentsAPI(tally.NewPayments(ds)).Router()
	return router, ds
}
