// Package services реализует отправку писем: напоминаний о продлении
// подписки и приветственных писем новым пользователям.
// Транспорт SMTP передаётся зависимостью, глобального состояния нет.
package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/subwatch/subtracker/internal/lib/sl"
	"github.com/subwatch/subtracker/internal/lib/smtp"
	"github.com/subwatch/subtracker/internal/models"
)

// SenderService отправляет письма через SMTP транспорт.
type SenderService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.TransportInterface, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendRenewalReminder отправляет напоминание о скором продлении подписки.
// Возврат nil означает подтверждённую передачу письма SMTP-серверу.
func (s *SenderService) SendRenewalReminder(info models.ReminderInfo) error {
	to := []string{info.Email}
	subject := fmt.Sprintf("Напоминание о продлении подписки: %s", info.ServiceName)

	var b strings.Builder
	fmt.Fprintf(&b, "Здравствуйте, %s!\n\n", info.Name)
	fmt.Fprintf(&b, "Ваша подписка на сервис %s будет продлена через %d дн. (%s).\n\n",
		info.ServiceName, info.DaysUntil, info.RenewalDate.Format("02.01.2006"))
	fmt.Fprintf(&b, "Стоимость: %.2f %s, периодичность: %s.\n", info.Cost, info.Currency, info.BillingCycle)
	if info.PaymentMethod != "" {
		fmt.Fprintf(&b, "Способ оплаты: %s.\n", info.PaymentMethod)
	}
	b.WriteString("\nУбедитесь, что на счёте достаточно средств. Если подписка больше не нужна, отмените её до даты продления.")

	return s.sendEmail(to, subject, b.String())
}

// SendWelcome отправляет приветственное письмо новому пользователю.
// Принимает тело сообщения из очереди RabbitMQ.
func (s *SenderService) SendWelcome(body []byte) error {
	var message models.WelcomeInfo
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	subject := "Добро пожаловать в Subtracker"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\nВаша учётная запись создана. Добавьте свои подписки, и мы напомним о каждом продлении заранее.",
		message.Name)

	return s.sendEmail(to, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", "recipient", addr, sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	_, err = wc.Write([]byte(msg))
	if err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
