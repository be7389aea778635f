package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"parking_facility/internal/config"
	"parking_facility/internal/domain"
	"parking_facility/internal/repository"
	"parking_facility/internal/service"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSConsumer drains barrier events off the gate queue. Entry events open a
// walk-in session (or none, when the vehicle arrives on a reservation that was
// already activated through the API); exit events close whatever open session
// the plate has.
type SQSConsumer struct {
	sqsClient      *sqs.Client
	queueURL       string
	sessionService *service.SessionService
}

func NewSQSConsumer(client *sqs.Client, cfg *config.Config, sessionService *service.SessionService) *SQSConsumer {
	return &SQSConsumer{
		sqsClient:      client,
		queueURL:       cfg.SQSGateQueueURL,
		sessionService: sessionService,
	}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	log.Printf("SQS consumer listening on queue: %s", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			log.Println("SQS consumer: context cancelled, stopping.")
			return
		default:
			receiveInput := &sqs.ReceiveMessageInput{
				QueueUrl:            &c.queueURL,
				MaxNumberOfMessages: 10,
				WaitTimeSeconds:     20,
				VisibilityTimeout:   60,
			}

			result, err := c.sqsClient.ReceiveMessage(ctx, receiveInput)
			if err != nil {
				log.Printf("SQS consumer: receive error: %v", err)
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}

			for _, message := range result.Messages {
				if message.Body == nil {
					c.deleteMessage(ctx, message.ReceiptHandle)
					continue
				}

				if err := c.handleEvent(ctx, *message.Body); err != nil {
					log.Printf("SQS consumer: processing message failed: %v. It will retry after the visibility timeout.", err)
					continue
				}
				c.deleteMessage(ctx, message.ReceiptHandle)
			}
		}
	}
}

func (c *SQSConsumer) handleEvent(ctx context.Context, body string) error {
	var event domain.GateEvent
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		// A malformed body will never parse; log and drop it.
		log.Printf("SQS consumer: dropping malformed gate event: %v", err)
		return nil
	}

	switch event.Direction {
	case "entry":
		_, err := c.sessionService.Start(ctx, service.Actor{}, domain.StartSessionDTO{
			LotID:        event.LotID,
			LicensePlate: event.LicensePlate,
		})
		if err != nil {
			// Vehicles arriving on an activated reservation already have an
			// open session; the barrier event is informational then.
			if errors.Is(err, service.ErrVehicleAlreadyParked) {
				return nil
			}
			return fmt.Errorf("gate entry for plate %s: %w", event.LicensePlate, err)
		}
		log.Printf("gate entry: opened session for plate %s in lot %d", event.LicensePlate, event.LotID)
		return nil

	case "exit":
		sess, err := c.sessionService.CheckOutByPlate(ctx, event.LicensePlate)
		if err != nil {
			// An exit without an open session cannot be recovered by retrying.
			if errors.Is(err, repository.ErrNoActiveSession) {
				log.Printf("gate exit: no open session for plate %s, dropping event", event.LicensePlate)
				return nil
			}
			return fmt.Errorf("gate exit for plate %s: %w", event.LicensePlate, err)
		}
		log.Printf("gate exit: closed session %d for plate %s, cost %.2f", sess.ID, event.LicensePlate, sess.Cost.Float64)
		return nil

	default:
		log.Printf("SQS consumer: dropping gate event with unknown direction %q", event.Direction)
		return nil
	}
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		return
	}
	if _, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	}); err != nil {
		log.Printf("SQS consumer: delete message error: %v", err)
	}
}
