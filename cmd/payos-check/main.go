package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/seasonaldecor/booking-backend/internal/config"
	"github.com/seasonaldecor/booking-backend/pkg/payos"
	"github.com/sirupsen/logrus"
)

// Smoke test for payOS credentials: creates a real checkout link for a
// throwaway order code and prints the URL. Use against sandbox keys.
func main() {
	var amount int
	flag.IntVar(&amount, "amount", 2000, "checkout amount")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	client := payos.NewClient(payos.Config{
		BaseURL:     cfg.PayOS.BaseURL,
		ClientID:    cfg.PayOS.ClientID,
		APIKey:      cfg.PayOS.APIKey,
		ChecksumKey: cfg.PayOS.ChecksumKey,
		ReturnURL:   cfg.PayOS.ReturnURL,
		CancelURL:   cfg.PayOS.CancelURL,
	}, logger)

	if !client.IsConfigured() {
		log.Fatal("payOS credentials are not configured (PAYOS_CLIENT_ID, PAYOS_API_KEY, PAYOS_CHECKSUM_KEY)")
	}

	orderCode := time.Now().Unix()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	checkout, err := client.CreatePaymentLink(ctx, payos.CheckoutRequest{
		OrderCode:   orderCode,
		Amount:      amount,
		Description: fmt.Sprintf("SmokeTest#%d", orderCode%100000),
		Items:       []payos.Item{{Name: "Connectivity check", Quantity: 1, Price: amount}},
	})
	if err != nil {
		log.Fatalf("Checkout link creation failed: %v", err)
	}

	fmt.Println("payOS connectivity OK")
	fmt.Printf("  order code:   %d\n", orderCode)
	fmt.Printf("  payment link: %s\n", checkout.PaymentLinkID)
	fmt.Printf("  checkout url: %s\n", checkout.CheckoutURL)
}
