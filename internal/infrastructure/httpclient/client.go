package httpclient

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// New 創建全進程共用的 HTTP 客戶端，啟動時建立一次並注入各外部服務客戶端
// 單次請求逾時由呼叫端的 context 控制
func New(appName, version string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", appName+"/"+version).
		SetHeader("Accept", "application/json")
}

// Close 關閉閒置連線
func Close(client *resty.Client) {
	if client == nil {
		return
	}
	client.GetClient().CloseIdleConnections()
}
