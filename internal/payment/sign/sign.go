package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrConfigInvalid    = errors.New("sign config invalid")
	ErrSignatureInvalid = errors.New("signature invalid")
)

// Config 签名配置
type Config struct {
	MerchantID     string
	AppID          string
	APIKey         string // HMAC 密钥
	SignType       string // HMAC-SHA256 / RSA-SHA256
	PrivateKeyPath string // RSA 私钥路径
	SerialNo       string // RSA 证书序列号
}

// RequestSigner 签名原语接口，状态机不感知具体算法。
type RequestSigner interface {
	Type() string
	Sign(content string) (string, error)
	Verify(content, signature string) error
}

// HMACSigner HMAC-SHA256 签名实现
type HMACSigner struct {
	key []byte
}

// NewHMACSigner 创建 HMAC 签名器
func NewHMACSigner(key string) (*HMACSigner, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrConfigInvalid
	}
	return &HMACSigner{key: []byte(key)}, nil
}

// Type 返回签名算法名称
func (s *HMACSigner) Type() string {
	return "HMAC-SHA256"
}

// Sign 对内容签名，输出小写十六进制
func (s *HMACSigner) Sign(content string) (string, error) {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(content))
	return strings.ToLower(hex.EncodeToString(mac.Sum(nil))), nil
}

// Verify 验证签名，常量时间比较
func (s *HMACSigner) Verify(content, signature string) error {
	expected, err := s.Sign(content)
	if err != nil {
		return err
	}
	decoded, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(signature)))
	if err != nil {
		return ErrSignatureInvalid
	}
	expectedRaw, err := hex.DecodeString(expected)
	if err != nil {
		return ErrSignatureInvalid
	}
	if !hmac.Equal(expectedRaw, decoded) {
		return ErrSignatureInvalid
	}
	return nil
}

// NewSigner 根据配置创建签名器
func NewSigner(cfg Config) (RequestSigner, error) {
	switch strings.ToUpper(strings.TrimSpace(cfg.SignType)) {
	case "", "HMAC-SHA256":
		return NewHMACSigner(cfg.APIKey)
	case "RSA-SHA256":
		return NewRSASigner(cfg.PrivateKeyPath, cfg.SerialNo)
	default:
		return nil, fmt.Errorf("%w: unknown sign type %s", ErrConfigInvalid, cfg.SignType)
	}
}

// BuildSignContent 构建待签名内容：按键名升序拼接 k=v&...，
// 跳过空值与 sign/sign_type 字段。
func BuildSignContent(params map[string]string) string {
	var keys []string
	for k, v := range params {
		if v == "" {
			continue
		}
		if k == "sign" || k == "sign_type" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, params[k]))
	}
	return strings.Join(pairs, "&")
}
