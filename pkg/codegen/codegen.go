package codegen

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateNumericCode 生成定长数字验证码
// 使用 crypto/rand 保证不可预测；返回零填充字符串，
// 绝不能转成整数使用（"00371" 的前导零会丢）
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 || length > 18 {
		return "", fmt.Errorf("验证码长度不合法: %d", length)
	}

	limit := big.NewInt(1)
	for i := 0; i < length; i++ {
		limit.Mul(limit, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("生成随机数失败: %w", err)
	}

	return fmt.Sprintf("%0*d", length, n), nil
}
