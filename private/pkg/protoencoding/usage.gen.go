// Generated. DO NOT EDIT.

package protoencoding

import _ "github.com/bufbuild/protoguard/private/usage"
