// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chat drives the menu-based conversation customers hold with the
// platform over the messaging channel.
package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opentrusty/warrantyhub/internal/catalog"
	"github.com/opentrusty/warrantyhub/internal/claim"
	"github.com/opentrusty/warrantyhub/internal/warranty"
)

// ErrInvalidMessage means the inbound payload cannot be processed
var ErrInvalidMessage = errors.New("invalid chat message")

// State of a conversation
type State string

const (
	StateIdle                   State = "idle"
	StateMenu                   State = "menu"
	StateRegisterWarrantySerial State = "register_warranty_serial"
	StateCheckWarrantySerial    State = "check_warranty_serial"
	StateCreateClaimSerial      State = "create_claim_serial"
	StateCreateClaimDescription State = "create_claim_description"
	StateCheckClaimID           State = "check_claim_id"
)

// Session data keys
const (
	dataWarrantyID = "warranty_id"
	dataStoreID    = "store_id"
)

const dateLayout = "2006-01-02"

const (
	msgMenu = "Welcome to Warranty Management! 🛡️\n\n" +
		"Please choose an option:\n" +
		"1️⃣ Register Warranty\n" +
		"2️⃣ Check Warranty\n" +
		"3️⃣ Create Claim\n" +
		"4️⃣ Check Claim Status\n\n" +
		"Reply with the number of your choice."
	msgInvalidOption      = "Invalid option. Please reply with 1, 2, 3, or 4."
	msgAskRegisterSerial  = "Please enter the product serial number to register warranty:"
	msgAskCheckSerial     = "Please enter the product serial number to check warranty:"
	msgAskClaimSerial     = "Please enter the product serial number to create a claim:"
	msgAskClaimID         = "Please enter your claim ID:"
	msgProductNotFound    = "Product not found. Please check the serial number and try again."
	msgNoWarrantyForClaim = "No warranty found for this product."
	msgClaimNotFound      = "Claim not found. Please check the ID and try again."
	msgHelp               = `Type "menu" to see available options.`
	msgSomethingWrong     = `Something went wrong. Type "menu" to restart.`
	msgClaimRestart       = `Your claim session has expired. Type "menu" to start again.`
)

var greetings = map[string]bool{"hi": true, "hello": true, "menu": true}

var menuOptions = map[string]struct {
	state  State
	prompt string
}{
	"1": {StateRegisterWarrantySerial, msgAskRegisterSerial},
	"2": {StateCheckWarrantySerial, msgAskCheckSerial},
	"3": {StateCreateClaimSerial, msgAskClaimSerial},
	"4": {StateCheckClaimID, msgAskClaimID},
}

func isGreeting(text string) bool {
	return greetings[strings.ToLower(strings.TrimSpace(text))]
}

func warrantySummary(w *warranty.Warranty, p *catalog.Product, now time.Time) string {
	remaining := "Expired"
	if days, ok := w.DaysRemaining(now); ok {
		remaining = fmt.Sprintf("%d", days)
	}
	return fmt.Sprintf("✅ Warranty Details:\nProduct: %s\nSerial: %s\nStatus: %s\nValid Until: %s\nDays Remaining: %s",
		p.DisplayName(), p.SerialNumber, w.Status, w.End.Format(dateLayout), remaining)
}

func productWithoutWarranty(p *catalog.Product) string {
	return fmt.Sprintf("Product found: %s\nNo warranty registered yet.", p.DisplayName())
}

func askDescription(p *catalog.Product) string {
	return fmt.Sprintf("Please describe the issue with your %s:", p.DisplayName())
}

func warrantyNotClaimable(w *warranty.Warranty) string {
	return fmt.Sprintf("This warranty is %s, so a new claim cannot be created.", w.Status)
}

func claimCreated(c *claim.Claim) string {
	return fmt.Sprintf("✅ Claim created successfully!\nClaim ID: %s\nStatus: Pending\nWe will review your claim and get back to you soon.", c.ID)
}

func claimStatus(c *claim.Claim, p *catalog.Product) string {
	latest := "No updates"
	if ev, ok := c.LatestEvent(); ok {
		latest = ev.Action
	}
	return fmt.Sprintf("📋 Claim Status:\nClaim ID: %s\nProduct: %s\nType: %s\nStatus: %s\nCreated: %s\n\nLatest Update: %s",
		c.ID, p.DisplayName(), c.Type, c.Status, c.CreatedAt.Format(dateLayout), latest)
}
