package aws

import (
	"reflect"
	"strings"
	"testing"
)

func Test_NormalizeRegions_Cases(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "separate values", in: []string{"US_EAST_1", "EU_WEST_2"}, want: []string{"US_EAST_1", "EU_WEST_2"}},
		{name: "comma separated", in: []string{"US_EAST_1,EU_WEST_2"}, want: []string{"US_EAST_1", "EU_WEST_2"}},
		{name: "space separated", in: []string{"US_EAST_1 EU_WEST_2"}, want: []string{"US_EAST_1", "EU_WEST_2"}},
		{name: "aws spelling", in: []string{"us-east-1, eu-west-2"}, want: []string{"US_EAST_1", "EU_WEST_2"}},
		{name: "duplicates dropped", in: []string{"us-east-1", "US_EAST_1"}, want: []string{"US_EAST_1"}},
		{name: "empty", in: []string{"", " , "}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeRegions(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeRegions(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func Test_ValidateRoleARN_Cases(t *testing.T) {
	tests := []struct {
		name    string
		arn     string
		account string
		wantErr string
	}{
		{name: "valid", arn: "arn:aws:iam::123456789012:role/rubrik-cross-account", account: "123456789012"},
		{name: "valid with path", arn: "arn:aws:iam::123456789012:role/rubrik/cross-account", account: "123456789012"},
		{name: "not an arn", arn: "rubrik-role", account: "123456789012", wantErr: "arn"},
		{name: "wrong service", arn: "arn:aws:s3:::bucket/role/x", account: "", wantErr: "service"},
		{name: "user not role", arn: "arn:aws:iam::123456789012:user/bob", account: "123456789012", wantErr: "not an IAM role"},
		{name: "bare role prefix", arn: "arn:aws:iam::123456789012:role/", account: "123456789012", wantErr: "not an IAM role"},
		{name: "other account", arn: "arn:aws:iam::210987654321:role/x", account: "123456789012", wantErr: "belongs to account 210987654321"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoleARN(tt.arn, tt.account)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateRoleARN: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateRoleARN error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func Test_Input_Validate_Cases(t *testing.T) {
	valid := Input{AccountID: "123456789012", AccountName: "prod", Regions: []string{"US_EAST_1"}}

	tests := []struct {
		name    string
		mutate  func(*Input)
		wantErr string
	}{
		{name: "valid", mutate: func(*Input) {}},
		{name: "short account id", mutate: func(in *Input) { in.AccountID = "12345" }, wantErr: "12 digits"},
		{name: "non numeric account id", mutate: func(in *Input) { in.AccountID = "12345678901a" }, wantErr: "12 digits"},
		{name: "missing name", mutate: func(in *Input) { in.AccountName = " " }, wantErr: "account name"},
		{name: "no regions", mutate: func(in *Input) { in.Regions = nil }, wantErr: "region"},
		{name: "bad role arn", mutate: func(in *Input) { in.RoleARN = "arn:aws:iam::999999999999:role/x" }, wantErr: "belongs to account"},
		{name: "stack lookup without region", mutate: func(in *Input) { in.StackLookup = &StackLookup{} }, wantErr: "AWS region"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := in.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
