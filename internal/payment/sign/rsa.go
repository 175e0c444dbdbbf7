package sign

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/wechatpay-apiv3/wechatpay-go/utils"
)

// RSASigner RSA-SHA256 签名实现，密钥加载与签名原语
// 复用 wechatpay-go 的工具函数。
type RSASigner struct {
	serialNo   string
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

// NewRSASigner 从私钥文件创建 RSA 签名器
func NewRSASigner(privateKeyPath, serialNo string) (*RSASigner, error) {
	privateKeyPath = strings.TrimSpace(privateKeyPath)
	if privateKeyPath == "" {
		return nil, ErrConfigInvalid
	}
	privateKey, err := utils.LoadPrivateKeyWithPath(privateKeyPath)
	if err != nil {
		return nil, err
	}
	return newRSASignerFromKey(privateKey, serialNo), nil
}

// NewRSASignerFromPEM 从 PEM 文本创建 RSA 签名器
func NewRSASignerFromPEM(privateKeyPEM, serialNo string) (*RSASigner, error) {
	privateKeyPEM = strings.TrimSpace(privateKeyPEM)
	if privateKeyPEM == "" {
		return nil, ErrConfigInvalid
	}
	privateKey, err := utils.LoadPrivateKey(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	return newRSASignerFromKey(privateKey, serialNo), nil
}

func newRSASignerFromKey(privateKey *rsa.PrivateKey, serialNo string) *RSASigner {
	return &RSASigner{
		serialNo:   strings.TrimSpace(serialNo),
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
	}
}

// Type 返回签名算法名称
func (s *RSASigner) Type() string {
	return "RSA-SHA256"
}

// Sign 对内容签名，输出 base64
func (s *RSASigner) Sign(content string) (string, error) {
	return utils.SignSHA256WithRSA(content, s.privateKey)
}

// Verify 验证签名
func (s *RSASigner) Verify(content, signature string) error {
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return ErrSignatureInvalid
	}
	digest := sha256.Sum256([]byte(content))
	if err := rsa.VerifyPKCS1v15(s.publicKey, crypto.SHA256, digest[:], sig); err != nil {
		return ErrSignatureInvalid
	}
	return nil
}
