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

package warranty

import (
	"context"
	"fmt"

	"github.com/opentrusty/warrantyhub/internal/certificate"
	"github.com/opentrusty/warrantyhub/internal/gateway"
)

// ArtifactProducer renders and stores the code and certificate
type ArtifactProducer interface {
	Produce(ctx context.Context, d certificate.Data) (certificate.Artifacts, error)
}

// ArtifactsHook produces the artifacts and stores their URLs on the warranty
func ArtifactsHook(producer ArtifactProducer, repo Repository) Hook {
	return Hook{
		Name: "certificate_pipeline",
		Run: func(ctx context.Context, reg *Registration) error {
			w := reg.Warranty
			art, err := producer.Produce(ctx, certificate.Data{
				WarrantyID:      w.ID,
				StoreID:         w.StoreID,
				StoreName:       reg.Store.Name,
				StoreAddress:    reg.Store.Address,
				StorePhone:      reg.Store.ContactPhone,
				CustomerName:    reg.Customer.Name,
				CustomerPhone:   reg.Customer.Phone,
				CustomerEmail:   reg.Customer.Email,
				CustomerAddress: reg.Customer.Address,
				Brand:           reg.Product.Brand,
				Model:           reg.Product.Model,
				Category:        reg.Product.Category,
				SerialNumber:    reg.Product.SerialNumber,
				PurchaseDate:    reg.Product.PurchaseDate,
				Start:           w.Start,
				End:             w.End,
			})
			if err != nil {
				return err
			}
			if err := repo.UpdateArtifacts(ctx, w.ID, art.CodeURL, art.CertificateURL); err != nil {
				return fmt.Errorf("failed to store artifact urls: %w", err)
			}
			w.CodeURL = art.CodeURL
			w.CertificateURL = art.CertificateURL
			return nil
		},
	}
}

// NotificationHook sends the certificate to the customer when the store has
// messaging enabled and the customer has a phone.
func NotificationHook(m gateway.Messenger) Hook {
	return Hook{
		Name: "certificate_notification",
		Run: func(ctx context.Context, reg *Registration) error {
			w := reg.Warranty
			if !reg.Store.Messaging.Enabled || reg.Customer.Phone == "" || w.CertificateURL == "" {
				return nil
			}
			caption := fmt.Sprintf("Your warranty for %s has been registered. Valid until %s.",
				reg.Product.DisplayName(), w.End.Format("2006-01-02"))
			return m.SendDocument(gateway.WithStore(ctx, w.StoreID), reg.Customer.Phone, w.CertificateURL,
				certificateFilename(reg.Product.SerialNumber), caption)
		},
	}
}
