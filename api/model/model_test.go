/*
Copyright 2024 Pointforge Authors.

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
package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAddPoints(t *testing.T) {
	valid := AddPointsRequest{UserID: "u1", Type: "TASK_REWARD", Amount: 10}
	assert.NoError(t, valid.ValidateAddPoints())

	missingUser := AddPointsRequest{Type: "TASK_REWARD", Amount: 10}
	assert.Error(t, missingUser.ValidateAddPoints())

	unknownType := AddPointsRequest{UserID: "u1", Type: "NOT_A_TYPE", Amount: 10}
	assert.Error(t, unknownType.ValidateAddPoints())

	zeroAmount := AddPointsRequest{UserID: "u1", Type: "TASK_REWARD"}
	assert.Error(t, zeroAmount.ValidateAddPoints())
}

func TestValidateCreateTask(t *testing.T) {
	valid := CreateTaskRequest{TaskKey: "daily", Title: "Daily", Cadence: "DAILY", TargetValue: 1}
	assert.NoError(t, valid.ValidateCreateTask())

	badCadence := CreateTaskRequest{TaskKey: "daily", Title: "Daily", Cadence: "HOURLY", TargetValue: 1}
	assert.Error(t, badCadence.ValidateCreateTask())

	noTarget := CreateTaskRequest{TaskKey: "daily", Title: "Daily", Cadence: "DAILY"}
	assert.Error(t, noTarget.ValidateCreateTask())
}

func TestValidateExchange(t *testing.T) {
	valid := ExchangeRequest{UserID: "u1", Amount: 10, Kind: "token", Target: "USDT"}
	assert.NoError(t, valid.ValidateExchange())

	badKind := ExchangeRequest{UserID: "u1", Amount: 10, Kind: "cash", Target: "USDT"}
	assert.Error(t, badKind.ValidateExchange())

	noTarget := ExchangeRequest{UserID: "u1", Amount: 10, Kind: "nft"}
	assert.Error(t, noTarget.ValidateExchange())
}

func TestValidateLinkReferral(t *testing.T) {
	valid := LinkReferralRequest{RefereeID: "a", ReferrerID: "b"}
	assert.NoError(t, valid.ValidateLinkReferral())

	missing := LinkReferralRequest{RefereeID: "a"}
	assert.Error(t, missing.ValidateLinkReferral())
}
