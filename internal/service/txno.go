package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/minimall-next/internal/constants"
)

const maxTransactionNoLength = 32

// AllocateTransactionNo 分配商户交易号：前缀 + 订单号 + 时间戳 + 随机数字后缀。
// 同一订单重试会得到不同交易号，旧号保留在历史支付记录上。
// 超长时收窄订单号部分，随机后缀始终完整保留。
func AllocateTransactionNo(orderID uint) string {
	now := time.Now().Format("20060102150405")
	orderPart := fmt.Sprintf("%d", orderID)
	maxOrderLen := maxTransactionNoLength - len(constants.TransactionNoPrefix) - len(now) - constants.TransactionNoRandDigits
	if len(orderPart) > maxOrderLen {
		// 低位变化最快，保留尾部
		orderPart = orderPart[len(orderPart)-maxOrderLen:]
	}
	return constants.TransactionNoPrefix + orderPart + now + randNumericCode(constants.TransactionNoRandDigits)
}

func randNumericCode(length int) string {
	if length <= 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(strconv.FormatInt(n.Int64(), 10))
	}
	return b.String()
}
