package nacos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServerConfigs(t *testing.T) {
	tests := map[string]struct {
		addrs   string
		want    []string
		wantErr bool
	}{
		"single":         {addrs: "localhost:8848", want: []string{"localhost"}},
		"multiple":       {addrs: "10.0.0.1:8848, 10.0.0.2:8848", want: []string{"10.0.0.1", "10.0.0.2"}},
		"missing port":   {addrs: "localhost", wantErr: true},
		"invalid port":   {addrs: "localhost:abc", wantErr: true},
		"empty":          {addrs: "", wantErr: true},
		"trailing comma": {addrs: "localhost:8848,", want: []string{"localhost"}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseServerConfigs(tc.addrs)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			var hosts []string
			for _, sc := range got {
				hosts = append(hosts, sc.IpAddr)
				assert.Equal(t, uint64(8848), sc.Port)
			}
			assert.Equal(t, tc.want, hosts)
		})
	}
}

func TestNewClientConfig(t *testing.T) {
	cc := NewClientConfig("storefront-dev")
	assert.Equal(t, "storefront-dev", cc.NamespaceId)
	assert.True(t, cc.NotLoadCacheAtStart)
}
