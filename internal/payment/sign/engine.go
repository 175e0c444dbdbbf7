package sign

import (
	"fmt"
	"strings"
)

// Engine 签名引擎，封装请求签名、小程序调起签名与回调验签。
type Engine struct {
	cfg    Config
	signer RequestSigner
}

// NewEngine 创建签名引擎
func NewEngine(cfg Config) (*Engine, error) {
	if strings.TrimSpace(cfg.MerchantID) == "" {
		return nil, ErrConfigInvalid
	}
	signer, err := NewSigner(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, signer: signer}, nil
}

// Signer 返回底层签名器
func (e *Engine) Signer() RequestSigner {
	return e.signer
}

// SignRequest 生成网关请求的 Authorization 头
func (e *Engine) SignRequest(method, path string, body []byte, timestamp int64, nonce string) (string, error) {
	message := fmt.Sprintf("%s\n%s\n%d\n%s\n%s\n", strings.ToUpper(method), path, timestamp, nonce, body)
	signature, err := e.signer.Sign(message)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`MM-%s mchid="%s",nonce_str="%s",timestamp="%d",serial_no="%s",signature="%s"`,
		e.signer.Type(), e.cfg.MerchantID, nonce, timestamp, e.cfg.SerialNo, signature), nil
}

// SignClientPayload 生成小程序端调起支付的签名
func (e *Engine) SignClientPayload(timestamp int64, nonce, pkg string) (string, error) {
	message := fmt.Sprintf("%s\n%d\n%s\n%s\n", e.cfg.AppID, timestamp, nonce, pkg)
	return e.signer.Sign(message)
}

// SignFields 对回调/应答字段签名（排序拼接后签名）
func (e *Engine) SignFields(fields map[string]string) (string, error) {
	return e.signer.Sign(BuildSignContent(fields))
}

// VerifyCallback 验证回调签名。任何解析失败都视为验签失败，
// 只返回 false，不中断调用方。
func (e *Engine) VerifyCallback(fields map[string]string, signature string) bool {
	if e == nil || e.signer == nil {
		return false
	}
	if strings.TrimSpace(signature) == "" {
		return false
	}
	content := BuildSignContent(fields)
	return e.signer.Verify(content, signature) == nil
}
