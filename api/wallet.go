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
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	model2 "github.com/tallyledger/tally/api/model"
	"github.com/tallyledger/tally/internal/apierror"
)

func (a PaymentsAPI) CreateWallet(c *gin.Context) {
	var newWallet model2.CreateWallet
	if err := c.ShouldBindJSON(&newWallet); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	err := newWallet.ValidateCreateWallet()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.payments.CreateWallet(c.Request.Context(), newWallet.UserID)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a PaymentsAPI) GetWallet(c *gin.Context) {
	rawID, passed := c.Params.Get("user_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required. pass user_id in the route /:user_id"})
		return
	}

	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be a number"})
		return
	}

	resp, err := a.payments.GetWallet(c.Request.Context(), userID)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a PaymentsAPI) DepositWallet(c *gin.Context) {
	rawID, passed := c.Params.Get("user_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required. pass user_id in the route /:user_id"})
		return
	}

	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be a number"})
		return
	}

	var deposit model2.DepositWallet
	if err := c.ShouldBindJSON(&deposit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := deposit.ValidateDepositWallet(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.payments.DepositWallet(c.Request.Context(), userID, deposit.Amount)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
