package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 核销和结算的原子区都要求串行化保护：
//   - 同一钱包的并发核销必须排队，否则两笔请求都读到 remaining=5
//     再各自提交 5-3，就发生丢失更新
//   - 结算全局单飞，保证 settlement_number 分配和批量关账不交错
//
// 加锁：SET key value NX EX timeout（NX 保证互斥，EX 防死锁）
// 解锁：Lua 脚本先校验 value 再删除，避免误删他人持有的锁
// ============================================================================

var (
	ErrLockFailed = errors.New("获取分布式锁失败")
)

// Locker 锁接口，Redis 实现用于多实例部署，Local 实现用于单机和测试
type Locker interface {
	// TryLock 非阻塞获取锁
	TryLock(ctx context.Context) (bool, error)
	// Lock 阻塞式获取锁（带重试）
	Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error
	// Unlock 释放锁
	Unlock(ctx context.Context) error
}

// Factory 按 key 创建锁
type Factory interface {
	NewLock(key, value string, expiration time.Duration) Locker
}

// DistributedLock 基于 Redis 的锁实现
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string // 锁持有者标识，释放时验证
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 校验持有者后删除，整个操作在 Lua 脚本内原子执行
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// RedisFactory 生产环境使用的锁工厂
type RedisFactory struct {
	client *redis.Client
}

func NewRedisFactory(client *redis.Client) *RedisFactory {
	return &RedisFactory{client: client}
}

func (f *RedisFactory) NewLock(key, value string, expiration time.Duration) Locker {
	return NewDistributedLock(f.client, key, value, expiration)
}

// ============================================================================
// 业务锁 key
// ============================================================================

// WalletLockKey 钱包核销锁，按钱包维度：不同钱包可并发核销，同一钱包排队
func WalletLockKey(walletID int64) string {
	return fmt.Sprintf("redeem:lock:wallet:%d", walletID)
}

// PurchaseLockKey 购买确认锁，按交易维度，抵御网关回调重放
func PurchaseLockKey(transactionNo string) string {
	return fmt.Sprintf("purchase:lock:txn:%s", transactionNo)
}

// SettlementLockKey 结算全局锁，结算单飞
func SettlementLockKey() string {
	return "settlement:lock:global"
}
