package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/wzlab/deal_go_server/config"
)

type Service struct {
	cfg *config.EmailConfig
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg}
}

// SendAnalysisComplete 变更请求分析完成通知
func (s *Service) SendAnalysisComplete(to, dealTitle, recommendation string) error {
	subject := "变更请求分析完成 - 合同协商平台"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">分析完成</h2>
        <p>您好，</p>
        <p>交易「%s」收到的变更请求已完成 AI 分析。</p>
        <p>系统建议：</p>
        <div style="background-color: #f3f4f6; padding: 15px; text-align: center; font-size: 20px; font-weight: bold; margin: 20px 0;">
            %s
        </div>
        <p>请登录平台查看详细的字段变更与条款调整。</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, dealTitle, recommendation)

	return s.sendHTML(to, subject, body)
}

// SendVersionGenerated 新版本合同生成通知
func (s *Service) SendVersionGenerated(to, dealTitle string, versionNumber int) error {
	subject := "新版本合同已生成 - 合同协商平台"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">新版本已生成</h2>
        <p>您好，</p>
        <p>交易「%s」的第 %d 版合同已生成完毕。</p>
        <p>请登录平台查看版本差异并确认后续操作。</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, dealTitle, versionNumber)

	return s.sendHTML(to, subject, body)
}

// SendStaleDealReminder 长期无进展交易提醒
func (s *Service) SendStaleDealReminder(to, dealTitle string, idleDays int) error {
	subject := "交易长时间未更新 - 合同协商平台"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">交易提醒</h2>
        <p>您好，</p>
        <p>交易「%s」已经 %d 天没有任何进展。</p>
        <p>如果协商仍在进行，请及时跟进对方的回复；如果交易已经结束，可以在平台上完成归档。</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, dealTitle, idleDays)

	return s.sendHTML(to, subject, body)
}

// sendHTML 发送 HTML 邮件
func (s *Service) sendHTML(to, subject, body string) error {
	headers := make(map[string]string)
	headers["From"] = s.cfg.From
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var msg strings.Builder
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String()))
}
